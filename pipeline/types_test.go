package pipeline_test

import (
	"testing"

	"github.com/almuwathiq/evidence-agent/pipeline"
)

func TestParseAuthorityAcceptsKnownIssuers(t *testing.T) {
	cases := map[string]pipeline.Authority{
		"BNM":      pipeline.AuthorityBNM,
		"aaoifi":   pipeline.AuthorityAAOIFI,
		" sc ":     pipeline.AuthoritySC,
		"Iifm":     pipeline.AuthorityIIFM,
		"fatwa":    pipeline.AuthorityFatwa,
		"IIFA":     pipeline.AuthorityIIFA,
	}

	for input, want := range cases {
		got, err := pipeline.ParseAuthority(input)
		if err != nil {
			t.Errorf("ParseAuthority(%q) returned error: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("ParseAuthority(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseAuthorityRejectsUnknownIssuer(t *testing.T) {
	for _, input := range []string{"BMN", "", "central-bank"} {
		if _, err := pipeline.ParseAuthority(input); err == nil {
			t.Errorf("ParseAuthority(%q) accepted an unknown issuer", input)
		}
	}
}

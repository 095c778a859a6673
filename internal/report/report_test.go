package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"payment-reconciliation-service/internal/models"
)

func sampleMatches() []*models.Match {
	return []*models.Match{
		{Scope: "acct-17", CollectionTransactionID: "c1", BankTransactionID: "b1",
			Confidence: 0.95, Type: models.MatchTypeReference, Status: models.MatchStatusAuto},
		{Scope: "acct-17", CollectionTransactionID: "c2", BankTransactionID: "b2",
			Confidence: 0.75, Type: models.MatchTypeAmount, Status: models.MatchStatusAuto},
		{Scope: "acct-17", CollectionTransactionID: "c3", BankTransactionID: "b3",
			Confidence: 0.62, Type: models.MatchTypeDescription, Status: models.MatchStatusAuto},
	}
}

func TestBuildReport(t *testing.T) {
	report := Build("acct-17", 5, 4, sampleMatches())

	if report.Matched != 3 {
		t.Errorf("matched = %d, expected 3", report.Matched)
	}
	if report.UnmatchedCollections != 2 || report.UnmatchedBanks != 1 {
		t.Errorf("unmatched = %d/%d, expected 2/1",
			report.UnmatchedCollections, report.UnmatchedBanks)
	}
	if report.ByType["reference"] != 1 || report.ByType["amount"] != 1 || report.ByType["description"] != 1 {
		t.Errorf("by type = %v", report.ByType)
	}
	if report.Confidence.High != 1 || report.Confidence.Medium != 1 || report.Confidence.Low != 1 {
		t.Errorf("confidence distribution = %+v", report.Confidence)
	}
}

func TestRenderConsole(t *testing.T) {
	report := Build("acct-17", 5, 4, sampleMatches())

	var buf bytes.Buffer
	if err := report.Render(&buf, FormatConsole); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"acct-17", "Matched", "reference", "high (>= 0.90)"} {
		if !strings.Contains(output, want) {
			t.Errorf("console output missing %q:\n%s", want, output)
		}
	}
}

func TestRenderJSON(t *testing.T) {
	report := Build("acct-17", 5, 4, sampleMatches())

	var buf bytes.Buffer
	if err := report.Render(&buf, FormatJSON); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if decoded.Scope != "acct-17" || decoded.Matched != 3 {
		t.Errorf("decoded report = %+v", decoded)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	report := Build("acct-17", 0, 0, nil)
	if err := report.Render(&bytes.Buffer{}, "xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

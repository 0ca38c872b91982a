package lookup

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mediflow/mediflow/internal/model"
)

func labelJSON(entries ...string) string {
	return fmt.Sprintf(`{"results":[%s]}`, strings.Join(entries, ","))
}

func labelEntry(brand, generic, manufacturer, ndc string) string {
	return fmt.Sprintf(`{"openfda":{
		"brand_name":[%q],
		"generic_name":[%q],
		"manufacturer_name":[%q],
		"product_ndc":[%q],
		"route":["ORAL"]}}`, brand, generic, manufacturer, ndc)
}

func TestSearchBrandName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		search := r.URL.Query().Get("search")
		if !strings.Contains(search, "openfda.brand_name") {
			t.Fatalf("unexpected search field: %q", search)
		}
		fmt.Fprint(w, labelJSON(
			labelEntry("Tylenol", "Acetaminophen", "Kenvue", "50580-488"),
			labelEntry("Tylenol PM", "Acetaminophen; Diphenhydramine", "Kenvue", "50580-615"),
		))
	}))
	defer server.Close()

	matches, err := NewClient(server.URL).Search(t.Context(), "Tylenol")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].BrandName != "Tylenol" {
		t.Fatalf("exact match should rank first, got %q", matches[0].BrandName)
	}
	if matches[0].Confidence != 1.0 {
		t.Fatalf("exact match confidence = %v", matches[0].Confidence)
	}
	if matches[1].Confidence >= matches[0].Confidence {
		t.Fatalf("ranking not descending: %v >= %v", matches[1].Confidence, matches[0].Confidence)
	}
}

func TestSearchFallsBackToGenericName(t *testing.T) {
	var fields []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		search := r.URL.Query().Get("search")
		fields = append(fields, search)
		if strings.Contains(search, "openfda.brand_name") {
			// openFDA signals no matches with a 404.
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, labelJSON(labelEntry("Glucophage", "Metformin Hydrochloride", "EMD Serono", "44087-1111")))
	}))
	defer server.Close()

	matches, err := NewClient(server.URL).Search(t.Context(), "metformin")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("expected brand then generic query, got %v", fields)
	}
	if len(matches) != 1 || matches[0].GenericName != "Metformin Hydrochloride" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
}

func TestSearchNoMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Search(t.Context(), "definitely-not-a-drug")
	if !errors.Is(err, ErrNoMatches) {
		t.Fatalf("expected ErrNoMatches, got %v", err)
	}
}

func TestSearchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer server.Close()

	if _, err := NewClient(server.URL).Search(t.Context(), "aspirin"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestSearchEmptyTermRejected(t *testing.T) {
	if _, err := NewClient("http://unused").Search(t.Context(), "  "); err == nil {
		t.Fatal("expected error for empty term")
	}
}

func TestSearchCapsResults(t *testing.T) {
	entries := make([]string, 8)
	for i := range entries {
		entries[i] = labelEntry(fmt.Sprintf("Aspirin %d", i), "Aspirin", "Bayer", fmt.Sprintf("0000-%04d", i))
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, labelJSON(entries...))
	}))
	defer server.Close()

	matches, err := NewClient(server.URL).Search(t.Context(), "aspirin")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) > 5 {
		t.Fatalf("results not capped: %d", len(matches))
	}
}

func TestToMedicine(t *testing.T) {
	now := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	m := Match{
		BrandName:    "Tylenol",
		GenericName:  "Acetaminophen",
		Manufacturer: "Kenvue",
		ProductNDC:   "50580-488",
		Confidence:   1.0,
	}

	med := m.ToMedicine("user-1", now)
	if err := med.Validate(); err != nil {
		t.Fatalf("converted medicine invalid: %v", err)
	}
	if med.Source != model.SourceOpenFDA {
		t.Fatalf("source = %q", med.Source)
	}
	if med.SourceRef != "50580-488" {
		t.Fatalf("source ref = %q", med.SourceRef)
	}
	if med.Name != "Tylenol" || med.GenericName != "Acetaminophen" {
		t.Fatalf("names not carried over: %+v", med)
	}
}

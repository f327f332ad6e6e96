package config

import "testing"

func TestMergeSeriesConfig(t *testing.T) {
	base := []SeriesSetting{
		{DocType: "sale", Prefix: "GRM", Width: 3, Floor: 50},
		{DocType: "receipt", Prefix: "RCP", Width: 4, Floor: 1},
	}

	got, err := MergeSeriesConfig(base, "sale:GRM:4:100, sale:k:3:1,sale::3:1")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0].Width != 4 || got[0].Floor != 100 {
		t.Fatalf("GRM override not applied: %+v", got[0])
	}
	if got[2].Prefix != "K" {
		t.Fatalf("prefix should be upper-cased, got %q", got[2].Prefix)
	}
	if got[3].Prefix != "" || got[3].Width != 3 {
		t.Fatalf("empty prefix series = %+v", got[3])
	}
	if base[0].Width != 3 {
		t.Fatalf("base slice was modified")
	}
}

func TestMergeSeriesConfigRejectsBadEntries(t *testing.T) {
	cases := []string{"sale:G:6", "sale:G:x:1", "sale:G:3:0", "sale:G:20:1"}
	for _, raw := range cases {
		if _, err := MergeSeriesConfig(nil, raw); err == nil {
			t.Fatalf("MergeSeriesConfig(%q) should fail", raw)
		}
	}
}

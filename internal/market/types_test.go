package market

import "testing"

func TestParseVenue(t *testing.T) {
	cases := map[string]Venue{
		"us": VenueUS,
		"hk": VenueHK,
		"cn": VenueCN,
		"a":  VenueCN,
		"US": VenueUS,
		"CN": VenueCN,
	}
	for input, want := range cases {
		got, err := ParseVenue(input)
		if err != nil {
			t.Fatalf("ParseVenue(%q) 失败: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseVenue(%q) 期望 %s, 实际 %s", input, want, got)
		}
	}

	if _, err := ParseVenue("jp"); err == nil {
		t.Fatal("未知市场应报错")
	}
}

func TestVenueLabel(t *testing.T) {
	if VenueUS.Label() != "美股" || VenueHK.Label() != "港股" || VenueCN.Label() != "A股" {
		t.Fatal("市场中文名错误")
	}
}

func TestQuoteDisplayName(t *testing.T) {
	q := Quote{Symbol: "600519", Name: "贵州茅台"}
	if q.DisplayName() != "贵州茅台" {
		t.Fatalf("有名称时应优先: %q", q.DisplayName())
	}
	q.Name = ""
	if q.DisplayName() != "600519" {
		t.Fatalf("无名称时应回落代码: %q", q.DisplayName())
	}
}

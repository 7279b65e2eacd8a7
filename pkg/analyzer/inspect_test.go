package analyzer

import (
	"testing"
	"time"
)

func TestInspectAt_Issues(t *testing.T) {
	content := `API Security Guide v1.2

Store API keys in plain text in the config file.
Call the service over http://api.example.com.
Hash passwords with MD5.
Keep the session token in a cookie.
Updated March 1, 2020. Compatible with v1.10.`

	report := InspectAt(content, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	if len(report.IssuesFound) != 4 || len(report.RecommendedUpdates) != 4 {
		t.Fatalf("Expected 4 issue/recommendation pairs, got %v / %v", report.IssuesFound, report.RecommendedUpdates)
	}
	if report.VersionInfo.LatestVersion != "v1.2" {
		t.Errorf("Expected lexicographic latest v1.2, got %q", report.VersionInfo.LatestVersion)
	}
	if report.VersionInfo.ReleaseDate != "March 01, 2020" {
		t.Errorf("Expected release date, got %q", report.VersionInfo.ReleaseDate)
	}
	if report.ContentQuality.Technical != 0.2 {
		t.Errorf("Expected technical 0.2, got %v", report.ContentQuality.Technical)
	}
	// Four years old and mentions md5.
	if report.ContentQuality.Freshness != 0.1 {
		t.Errorf("Expected freshness 0.1, got %v", report.ContentQuality.Freshness)
	}
}

func TestInspectAt_Clean(t *testing.T) {
	content := "Use HTTPS for every endpoint. Hash passwords with bcrypt. Set the secure flag on cookies that hold a token."

	report := InspectAt(content, time.Now())

	if len(report.IssuesFound) != 0 {
		t.Errorf("Expected no issues, got %v", report.IssuesFound)
	}
	if report.ContentQuality.Technical != 1 || report.ContentQuality.Freshness != 1 || report.ContentQuality.Clarity != 1 {
		t.Errorf("Expected perfect scores, got %+v", report.ContentQuality)
	}
	if report.VersionInfo.LatestVersion != "" || len(report.VersionInfo.VersionsMentioned) != 0 {
		t.Errorf("Expected no versions, got %+v", report.VersionInfo)
	}
}

func TestInspect_Deterministic(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := InspectAt("Some text about FTP uploads.", now)
	b := InspectAt("Some text about FTP uploads.", now)
	if a.ContentQuality != b.ContentQuality {
		t.Errorf("Expected identical scores, got %+v and %+v", a.ContentQuality, b.ContentQuality)
	}
	if a.ContentQuality.Freshness != 0.8 {
		t.Errorf("Expected freshness 0.8, got %v", a.ContentQuality.Freshness)
	}
}

func TestClarity(t *testing.T) {
	if got := clarity(""); got != 0 {
		t.Errorf("Expected 0 for empty content, got %v", got)
	}
	long := ""
	for i := 0; i < 60; i++ {
		long += "word "
	}
	if got := clarity(long); got != 0.2 {
		t.Errorf("Expected floor 0.2 for a 60-word sentence, got %v", got)
	}
}

package demo

import (
	"math/rand"
	"time"
)

// ThreatFeed is one threat-intelligence item.
type ThreatFeed struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Confidence  string    `json:"confidence"`
	Region      string    `json:"region"`
	Indicators  []string  `json:"indicators"`
	Timestamp   time.Time `json:"timestamp"`
}

// ThreatIntelligence is the feed listing returned by the API.
type ThreatIntelligence struct {
	Feeds        []ThreatFeed `json:"feeds"`
	TotalThreats int          `json:"total_threats"`
	LastUpdated  time.Time    `json:"last_updated"`
}

var threatFeeds = []struct {
	feed ThreatFeed
	age  time.Duration
}{
	{ThreatFeed{
		ID:          "TI-2024-001",
		Title:       "APT29 Phishing Infrastructure",
		Description: "New credential harvesting domains registered mimicking defense contractor portals.",
		Severity:    "critical",
		Confidence:  "high",
		Region:      "Eastern Europe",
		Indicators:  []string{"login-secure-portal.com", "185.220.101.47", "mil-auth-verify.net"},
	}, 30 * time.Minute},
	{ThreatFeed{
		ID:          "TI-2024-002",
		Title:       "LockBit Ransomware Variant",
		Description: "Updated LockBit payload using intermittent encryption to evade behavioral detection.",
		Severity:    "critical",
		Confidence:  "confirmed",
		Region:      "Global",
		Indicators:  []string{"a3f5c9e1b2d4...e7", "203.0.113.99", "lockbit-decryptor.onion"},
	}, 2 * time.Hour},
	{ThreatFeed{
		ID:          "TI-2024-003",
		Title:       "SSH Brute Force Botnet",
		Description: "Distributed botnet cycling default credentials against exposed SSH services.",
		Severity:    "high",
		Confidence:  "high",
		Region:      "Asia Pacific",
		Indicators:  []string{"198.51.100.0/24", "192.0.2.150"},
	}, 5 * time.Hour},
	{ThreatFeed{
		ID:          "TI-2024-004",
		Title:       "VPN Appliance Exploitation",
		Description: "Active exploitation of an unpatched VPN gateway authentication bypass.",
		Severity:    "high",
		Confidence:  "medium",
		Region:      "North America",
		Indicators:  []string{"CVE-2024-21887", "93.184.216.34"},
	}, 9 * time.Hour},
	{ThreatFeed{
		ID:          "TI-2024-005",
		Title:       "Supply Chain Typosquatting",
		Description: "Malicious packages published under names similar to internal build dependencies.",
		Severity:    "medium",
		Confidence:  "low",
		Region:      "Global",
		Indicators:  []string{"requestss", "python-dateutils"},
	}, 20 * time.Hour},
}

// ThreatIntel returns the static feed with timestamps relative to now.
func ThreatIntel(now time.Time) ThreatIntelligence {
	feeds := make([]ThreatFeed, 0, len(threatFeeds))
	for _, f := range threatFeeds {
		feed := f.feed
		feed.Indicators = append([]string(nil), f.feed.Indicators...)
		feed.Timestamp = now.Add(-f.age).UTC()
		feeds = append(feeds, feed)
	}
	return ThreatIntelligence{
		Feeds:        feeds,
		TotalThreats: len(feeds),
		LastUpdated:  now.UTC(),
	}
}

// AttackOrigin is one point on the attack map.
type AttackOrigin struct {
	Country  string  `json:"country"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Attacks  int     `json:"attacks"`
	Severity string  `json:"severity"`
}

// AttackMap is the attack-origin listing returned by the API.
type AttackMap struct {
	Origins      []AttackOrigin `json:"origins"`
	TotalAttacks int            `json:"total_attacks"`
	LastUpdated  time.Time      `json:"last_updated"`
}

var attackOrigins = []AttackOrigin{
	{Country: "Russia", Lat: 55.7558, Lng: 37.6173, Attacks: 45, Severity: "critical"},
	{Country: "China", Lat: 39.9042, Lng: 116.4074, Attacks: 38, Severity: "high"},
	{Country: "North Korea", Lat: 39.0392, Lng: 125.7625, Attacks: 22, Severity: "critical"},
	{Country: "Iran", Lat: 35.6892, Lng: 51.3890, Attacks: 18, Severity: "high"},
	{Country: "Brazil", Lat: -15.7975, Lng: -47.8919, Attacks: 12, Severity: "medium"},
	{Country: "Nigeria", Lat: 9.0765, Lng: 7.3986, Attacks: 8, Severity: "medium"},
	{Country: "Romania", Lat: 44.4268, Lng: 26.1025, Attacks: 6, Severity: "low"},
}

// attackJitter is the maximum per-origin variation applied to attack counts.
const attackJitter = 5

// Map returns the attack-origin fixture with counts jittered by rng.
func Map(now time.Time, rng *rand.Rand) AttackMap {
	origins := make([]AttackOrigin, len(attackOrigins))
	total := 0
	for i, o := range attackOrigins {
		o.Attacks += rng.Intn(2*attackJitter+1) - attackJitter
		if o.Attacks < 1 {
			o.Attacks = 1
		}
		origins[i] = o
		total += o.Attacks
	}
	return AttackMap{
		Origins:      origins,
		TotalAttacks: total,
		LastUpdated:  now.UTC(),
	}
}

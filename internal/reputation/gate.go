// Package reputation implements the sender reputation gate: a coarse,
// rule-based pre-filter that routes obviously risky or obviously safe
// senders deterministically, without invoking the judge layer.
package reputation

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// ProfileNamespace is the fixed namespace the sender profile is stored
// under.
var ProfileNamespace = Namespace{"email_assistant", "sender_reputation"}

// ProfileKey is the fixed key the sender profile is stored under.
const ProfileKey = "profile"

// Risk levels assigned to incoming messages.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Sender statuses as persisted in the profile.
const (
	StatusNew     = "new"
	StatusKnown   = "known"
	StatusTrusted = "trusted"
	StatusFlagged = "flagged"
	StatusUnknown = "unknown"
)

// moneyKeywords is the fixed list of money/urgency markers that escalate a
// new sender to high risk.
var moneyKeywords = []string{
	"invoice",
	"payment",
	"wire",
	"transfer",
	"bank",
	"crypto",
	"bitcoin",
	"paypal",
	"urgent",
	"overdue",
	"bill",
	"due",
}

// addrPattern extracts the address from a header-style "Name <addr>" value.
var addrPattern = regexp.MustCompile(`<([^>]+)>`)

// SenderRecord is the stored reputation entry for one address.
type SenderRecord struct {
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Profile is the full persisted reputation state. Exactly one of
// Known/Flagged may hold a given address at a time.
type Profile struct {
	Known    map[string]SenderRecord `json:"known"`
	Flagged  map[string]SenderRecord `json:"flagged"`
	LastSeen map[string]string       `json:"last_seen,omitempty"`
}

// emptyProfile returns a profile with all maps initialized.
func emptyProfile() Profile {
	return Profile{
		Known:    make(map[string]SenderRecord),
		Flagged:  make(map[string]SenderRecord),
		LastSeen: make(map[string]string),
	}
}

// Assessment is the gate's verdict for one incoming message.
type Assessment struct {
	Email     string
	Status    string
	RiskLevel string
	Reason    string
}

// Gate computes risk assessments against a persisted sender profile.
type Gate struct {
	kv  KVStore
	log *slog.Logger
}

// NewGate creates a reputation gate over the given key/value store.
func NewGate(kv KVStore, log *slog.Logger) *Gate {
	return &Gate{
		kv:  kv,
		log: log,
	}
}

// loadProfile reads the persisted profile, falling back to an empty one on
// any read or decode failure.
func (g *Gate) loadProfile(ctx context.Context) Profile {
	entry, err := g.kv.Get(ctx, ProfileNamespace, ProfileKey)
	if err != nil {
		g.log.Warn("Failed to load sender profile; using empty",
			"error", err,
		)
		return emptyProfile()
	}

	profile := emptyProfile()
	entry.WhenSome(func(e Entry) {
		var decoded Profile
		if err := json.Unmarshal([]byte(e.Value), &decoded); err != nil {
			g.log.Warn("Corrupt sender profile; using empty",
				"error", err,
			)
			return
		}

		if decoded.Known != nil {
			profile.Known = decoded.Known
		}
		if decoded.Flagged != nil {
			profile.Flagged = decoded.Flagged
		}
		if decoded.LastSeen != nil {
			profile.LastSeen = decoded.LastSeen
		}
	})

	return profile
}

// saveProfile writes the full profile back in one atomic put. Persistence
// failures are logged, never raised: a reputation write must not abort the
// surrounding graph turn.
func (g *Gate) saveProfile(ctx context.Context, profile Profile) {
	encoded, err := json.Marshal(profile)
	if err != nil {
		g.log.Error("Failed to encode sender profile", "error", err)
		return
	}

	err = g.kv.Put(ctx, ProfileNamespace, ProfileKey, string(encoded))
	if err != nil {
		g.log.Error("Failed to persist sender profile", "error", err)
	}
}

// ExtractEmail normalizes a raw header-style author string to a bare
// lowercase address. Returns the empty string when no address is present.
func ExtractEmail(address string) string {
	if address == "" {
		return ""
	}

	if match := addrPattern.FindStringSubmatch(address); match != nil {
		return strings.ToLower(strings.TrimSpace(match[1]))
	}

	return strings.ToLower(strings.TrimSpace(address))
}

// AssessSender evaluates sender reputation and assigns a risk level based
// on the stored profile and message content. An address that cannot be
// extracted yields a high-risk assessment and leaves persisted state
// untouched; every addressed assessment stamps last_seen and persists the
// full profile.
func (g *Gate) AssessSender(ctx context.Context, author, subject,
	body string) Assessment {

	profile := g.loadProfile(ctx)

	email := ExtractEmail(author)
	if email == "" {
		return Assessment{
			Email:     "",
			Status:    StatusUnknown,
			RiskLevel: RiskHigh,
			Reason:    "Missing sender address",
		}
	}

	record, haveRecord := profile.Known[email]
	if !haveRecord {
		record, haveRecord = profile.Flagged[email]
	}

	status := StatusNew
	if haveRecord {
		status = record.Status
	}

	text := strings.ToLower(subject) + "\n" + strings.ToLower(body)

	riskLevel := RiskLow
	reason := "Known sender"

	moneyHit := false
	for _, keyword := range moneyKeywords {
		if strings.Contains(text, keyword) {
			moneyHit = true
			break
		}
	}

	switch {
	case status == StatusNew:
		if moneyHit {
			riskLevel = RiskHigh
			reason = "New sender requesting financial action"
		} else {
			riskLevel = RiskMedium
			reason = "New sender"
		}

	case status == StatusFlagged:
		riskLevel = RiskHigh
		reason = record.Reason
		if reason == "" {
			reason = "Previously flagged sender"
		}

	default:
		if record.Reason != "" {
			reason = record.Reason
		}
	}

	profile.LastSeen[email] = time.Now().UTC().Format(time.RFC3339)
	g.saveProfile(ctx, profile)

	return Assessment{
		Email:     email,
		Status:    status,
		RiskLevel: riskLevel,
		Reason:    reason,
	}
}

// NoteSender records an explicit reputation override for an address,
// moving it into exactly one of the known/flagged partitions. An empty
// email is a no-op.
func (g *Gate) NoteSender(ctx context.Context, email, status,
	reason string) {

	if email == "" {
		return
	}

	profile := g.loadProfile(ctx)

	record := SenderRecord{
		Status:    status,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if reason != "" {
		record.Reason = reason
	}

	switch status {
	case StatusTrusted, StatusKnown:
		profile.Known[email] = record
		delete(profile.Flagged, email)

	case StatusFlagged:
		profile.Flagged[email] = record
		delete(profile.Known, email)
	}

	g.saveProfile(ctx, profile)
}

// SenderExists reports whether the address is present in either partition.
func (g *Gate) SenderExists(ctx context.Context, email string) bool {
	profile := g.loadProfile(ctx)

	_, known := profile.Known[email]
	_, flagged := profile.Flagged[email]

	return known || flagged
}

// ProfileSnapshot returns the full persisted profile for diagnostics and
// tests.
func (g *Gate) ProfileSnapshot(ctx context.Context) Profile {
	return g.loadProfile(ctx)
}

package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-learn/internal/progress"
	"github.com/mind-engage/mindengage-learn/internal/quizsession"
	"github.com/mind-engage/mindengage-learn/internal/storage"
)

// Rule moves one legacy key to its current name and storage class.
type Rule struct {
	From      string
	To        string
	Options   storage.Options
	Transform func(v any) (any, error)
}

// LegacyRules maps the flat keys written by earlier releases.
var LegacyRules = []Rule{
	{From: "authToken", To: "auth_token", Options: storage.Secure},
	{From: "animationsEnabled", To: "pref_animations_enabled", Transform: toBool},
	{From: "hasSeenChatTooltip", To: "pref_seen_chat_tooltip", Transform: toBool},
	{From: "pendingSubscription", To: "pending_subscription", Options: storage.Temporary},
	{From: "referralCode", To: "referral_code", Options: storage.Temporary},
	{From: "userPreferences", To: "pref_user"},
	{From: "lastVisitedCourse", To: "nav_last_course"},
	{From: "guestProgress", To: progress.GuestKey},
	{From: "theme", To: "pref_theme"},
}

const legacyQuizPrefix = "quiz_"

func toBool(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(b))
	case float64:
		return b != 0, nil
	}
	return nil, fmt.Errorf("not a boolean: %T", v)
}

// ItemError is the failure of one key.
type ItemError struct {
	Key string
	Err error
}

func (e ItemError) Error() string { return e.Key + ": " + e.Err.Error() }
func (e ItemError) Unwrap() error { return e.Err }

type Report struct {
	Scanned  int
	Migrated int
	Errors   []ItemError
}

// Migrator upgrades legacy keys in persistent storage. It is the only
// component that deletes legacy keys.
type Migrator struct {
	store  *storage.Adapter
	rules  map[string]Rule
	logger *zap.Logger

	once   sync.Once
	report Report
}

func NewMigrator(store *storage.Adapter, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	rules := make(map[string]Rule, len(LegacyRules))
	for _, r := range LegacyRules {
		rules[r.From] = r
	}
	return &Migrator{store: store, rules: rules, logger: logger}
}

// isLegacyQuizKey matches quiz payloads written before sessions were
// namespaced. Keys of the current scheme are left alone.
func isLegacyQuizKey(key string) bool {
	if !strings.HasPrefix(key, legacyQuizPrefix) {
		return false
	}
	return !strings.HasPrefix(key, quizsession.SessionKey("")) &&
		!strings.HasPrefix(key, quizsession.ResultsKey("")) &&
		key != quizsession.SessionIDKey
}

// MigrateLegacy scans persistent storage once. A legacy key is removed only
// after its new copy reached the backend. Failures are collected per key;
// a key that failed stays in place for the next run.
func (m *Migrator) MigrateLegacy(ctx context.Context) Report {
	var rep Report
	if !m.store.Available() {
		return rep
	}
	for _, key := range m.store.Keys(ctx, false) {
		rep.Scanned++
		rule, ok := m.rules[key]
		if !ok {
			if !isLegacyQuizKey(key) {
				continue
			}
			rule = Rule{From: key, To: key, Options: storage.Secure}
		}
		if err := m.migrate(ctx, rule); err != nil {
			m.logger.Warn("legacy key not migrated", zap.String("key", key), zap.Error(err))
			rep.Errors = append(rep.Errors, ItemError{Key: key, Err: err})
			continue
		}
		rep.Migrated++
	}
	if rep.Migrated > 0 || len(rep.Errors) > 0 {
		m.logger.Info("legacy storage migrated",
			zap.Int("scanned", rep.Scanned), zap.Int("migrated", rep.Migrated), zap.Int("errors", len(rep.Errors)))
	}
	return rep
}

func (m *Migrator) migrate(ctx context.Context, r Rule) error {
	raw, ok := m.store.GetRaw(ctx, r.From, storage.Plain)
	if !ok {
		return fmt.Errorf("read %s", r.From)
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		v = raw
	}
	if r.Transform != nil {
		var err error
		if v, err = r.Transform(v); err != nil {
			return fmt.Errorf("transform: %w", err)
		}
	}
	if err := m.store.SetItemSync(ctx, r.To, v, r.Options); err != nil {
		return fmt.Errorf("write %s: %w", r.To, err)
	}
	if !m.store.RemoveItem(ctx, r.From, storage.Plain) {
		return fmt.Errorf("remove %s", r.From)
	}
	return nil
}

// RunOnce migrates on first call and returns that run's report afterwards.
func (m *Migrator) RunOnce(ctx context.Context) Report {
	m.once.Do(func() { m.report = m.MigrateLegacy(ctx) })
	return m.report
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	portsrepo "github.com/SscSPs/shared_expense_bot/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/pkg/clock"
)

// SplitRulesSettingKey is the settings row holding the serialized override table.
const SplitRulesSettingKey = "split_rules"

// DefaultSplitCacheTTL is how long the merged rule table is served from memory.
const DefaultSplitCacheTTL = 60 * time.Second

// categorySynonyms maps lower-cased spellings to canonical category names.
var categorySynonyms = map[string]string{
	"grocery":        "Groceries",
	"groceries":      "Groceries",
	"supermarket":    "Groceries",
	"food":           "Food",
	"dining":         "Food",
	"restaurant":     "Food",
	"restaurants":    "Food",
	"takeaway":       "Food",
	"takeout":        "Food",
	"eating out":     "Food",
	"transport":      "Transport",
	"transportation": "Transport",
	"taxi":           "Transport",
	"fuel":           "Transport",
	"petrol":         "Transport",
	"gas":            "Transport",
	"utility":        "Utilities",
	"utilities":      "Utilities",
	"bills":          "Utilities",
	"electricity":    "Utilities",
	"internet":       "Utilities",
	"rent":           "Rent",
	"housing":        "Rent",
	"household":      "Household",
	"home":           "Household",
	"entertainment":  "Entertainment",
	"movies":         "Entertainment",
	"shopping":       "Shopping",
	"clothes":        "Shopping",
	"health":         "Health",
	"pharmacy":       "Health",
	"medical":        "Health",
	"travel":         "Travel",
	"holiday":        "Travel",
	"misc":           "Other",
	"other":          "Other",
}

// splitRuleService implements portssvc.SplitRuleSvc
type splitRuleService struct {
	BaseService
	settingsRepo portsrepo.SettingsRepository
	defaultSplit domain.Split
	cacheTTL     time.Duration

	mu         sync.RWMutex
	cached     map[string]domain.Split
	expiresAt  time.Time
	generation uint64 // bumped by invalidate; a load that started before a bump is not cached
}

// SplitRuleOption configures the split rule service
type SplitRuleOption func(*splitRuleService)

// WithSplitCacheTTL overrides how long the rule table is cached.
func WithSplitCacheTTL(ttl time.Duration) SplitRuleOption {
	return func(s *splitRuleService) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithSplitRuleClock injects the clock used for cache expiry.
func WithSplitRuleClock(c clock.Clock) SplitRuleOption {
	return func(s *splitRuleService) {
		s.Clock = c
	}
}

// NewSplitRuleService creates the resolver. defaultSplit applies to categories without an override.
func NewSplitRuleService(settingsRepo portsrepo.SettingsRepository, defaultSplit domain.Split, options ...SplitRuleOption) portssvc.SplitRuleSvc {
	if defaultSplit.Validate() != nil {
		defaultSplit = domain.EqualSplit()
	}
	svc := &splitRuleService{
		settingsRepo: settingsRepo,
		defaultSplit: defaultSplit,
		cacheTTL:     DefaultSplitCacheTTL,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.SplitRuleSvc = (*splitRuleService)(nil)

// NormalizeCategory maps synonyms to their canonical name and title-cases everything else.
func (s *splitRuleService) NormalizeCategory(category string) string {
	key := strings.Join(strings.Fields(strings.ToLower(category)), " ")
	if key == "" {
		return ""
	}
	if canonical, ok := categorySynonyms[key]; ok {
		return canonical
	}
	words := strings.Fields(key)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func (s *splitRuleService) Default() domain.Split {
	return s.defaultSplit
}

func (s *splitRuleService) Resolve(ctx context.Context, category string) domain.Split {
	rules := s.rules(ctx)
	if split, ok := rules[s.NormalizeCategory(category)]; ok {
		return split
	}
	return s.defaultSplit
}

func (s *splitRuleService) ListRules(ctx context.Context) []domain.SplitRule {
	rules := s.rules(ctx)
	list := make([]domain.SplitRule, 0, len(rules)+1)
	list = append(list, domain.SplitRule{Category: "Default", Split: s.defaultSplit, IsDefault: true})
	categories := make([]string, 0, len(rules))
	for c := range rules {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		list = append(list, domain.SplitRule{Category: c, Split: rules[c]})
	}
	return list
}

func (s *splitRuleService) Update(ctx context.Context, category string, split domain.Split, actor string) error {
	normalized := s.NormalizeCategory(category)
	if normalized == "" {
		return apperrors.Validationf("category is required")
	}
	if err := split.Validate(); err != nil {
		return err
	}

	overrides, err := s.loadForWrite(ctx)
	if err != nil {
		return err
	}
	overrides[normalized] = split
	if err := s.store(ctx, overrides, actor); err != nil {
		return err
	}

	s.LogInfo(ctx, "Split rule updated",
		slog.String("category", normalized),
		slog.String("split", split.String()),
		slog.String("actor", actor))
	return nil
}

func (s *splitRuleService) Remove(ctx context.Context, category string, actor string) error {
	normalized := s.NormalizeCategory(category)
	overrides, err := s.loadForWrite(ctx)
	if err != nil {
		return err
	}
	if _, ok := overrides[normalized]; !ok {
		return apperrors.NotFoundf("no split rule for %q", normalized)
	}
	delete(overrides, normalized)
	return s.store(ctx, overrides, actor)
}

func (s *splitRuleService) ResetAll(ctx context.Context) error {
	if err := s.settingsRepo.DeleteSetting(ctx, SplitRulesSettingKey); err != nil {
		s.LogError(ctx, err, "Failed to reset split rules")
		return err
	}
	s.invalidate()
	s.LogInfo(ctx, "Split rules reset to default")
	return nil
}

// rules returns the cached override table, reloading it once the cache expired.
// Storage failures are logged and served as an empty table.
func (s *splitRuleService) rules(ctx context.Context) map[string]domain.Split {
	now := s.Now()
	s.mu.RLock()
	if s.cached != nil && now.Before(s.expiresAt) {
		rules := s.cached
		s.mu.RUnlock()
		return rules
	}
	gen := s.generation
	s.mu.RUnlock()

	rules, err := s.load(ctx)
	if err != nil {
		s.LogWarn(ctx, "Split rules unavailable, using default", slog.String("error", err.Error()))
		return map[string]domain.Split{}
	}

	s.mu.Lock()
	if s.generation == gen {
		s.cached = rules
		s.expiresAt = now.Add(s.cacheTTL)
	}
	s.mu.Unlock()
	return rules
}

// load reads the override blob. A missing, null or unparsable blob is an empty table, and
// invalid entries are dropped. Only storage errors are returned.
func (s *splitRuleService) load(ctx context.Context) (map[string]domain.Split, error) {
	raw, err := s.settingsRepo.GetSetting(ctx, SplitRulesSettingKey)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return map[string]domain.Split{}, nil
		}
		return nil, err
	}
	return s.decode(ctx, raw), nil
}

func (s *splitRuleService) loadForWrite(ctx context.Context) (map[string]domain.Split, error) {
	overrides, err := s.load(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to read split rules before write")
		return nil, err
	}
	return overrides, nil
}

func (s *splitRuleService) decode(ctx context.Context, raw *string) map[string]domain.Split {
	rules := map[string]domain.Split{}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return rules
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal([]byte(*raw), &entries); err != nil {
		s.LogWarn(ctx, "Discarding unparsable split rules", slog.String("error", err.Error()))
		return rules
	}
	for category, entry := range entries {
		var split domain.Split
		if err := json.Unmarshal(entry, &split); err != nil {
			s.LogWarn(ctx, "Discarding unparsable split rule", slog.String("category", category))
			continue
		}
		if err := split.Validate(); err != nil {
			s.LogWarn(ctx, "Discarding invalid split rule", slog.String("category", category))
			continue
		}
		if normalized := s.NormalizeCategory(category); normalized != "" {
			rules[normalized] = split
		}
	}
	return rules
}

func (s *splitRuleService) store(ctx context.Context, overrides map[string]domain.Split, actor string) error {
	blob, err := json.Marshal(overrides)
	if err != nil {
		return apperrors.Storage("failed to encode split rules", err)
	}
	if err := s.settingsRepo.PutSetting(ctx, SplitRulesSettingKey, string(blob), actor, s.Now()); err != nil {
		s.LogError(ctx, err, "Failed to store split rules")
		return err
	}
	s.invalidate()
	return nil
}

func (s *splitRuleService) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.expiresAt = time.Time{}
	s.generation++
	s.mu.Unlock()
}

package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pantryplanner"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// AssistedPlanner proposes a full week for a Request. Implementations return an error for
// any failure (transport, timeout, non-2xx, malformed payload); the Planner treats all of
// them the same way and falls back to the greedy allocator.
type AssistedPlanner interface {
	Plan(ctx context.Context, req Request) (Response, error)
}

// RecipeFetcher supplies recipes beyond the ones the user selected.
type RecipeFetcher interface {
	FetchRecipes(ctx context.Context, q RecipeQuery) ([]Recipe, error)
}

// RecipeQuery describes the supplementary recipes wanted for a run.
type RecipeQuery struct {
	Ingredients []string // most urgent pantry items first
	Cuisines    []string
	Dietary     []string
	ExcludeIDs  []string
	Limit       int
}

// Phases of a planning run, as recorded in the run log.
const (
	PhaseStart          = "START"
	PhaseBuildPool      = "BUILD_CANDIDATE_POOL"
	PhaseTryAssisted    = "TRY_ASSISTED"
	PhaseAssistedOK     = "ASSISTED_OK"
	PhaseAssistedFailed = "ASSISTED_FAILED"
	PhaseCommitAssisted = "COMMIT_ASSISTED"
	PhaseRunGreedy      = "RUN_GREEDY"
	PhaseDone           = "DONE"
)

// Source tells which allocator produced a plan.
type Source string

const (
	SourceAssisted Source = "assisted"
	SourceGreedy   Source = "greedy"
	// SourceAssistedGapFill marks an assisted plan whose empty slots were filled greedily.
	SourceAssistedGapFill Source = "assisted+greedy"
)

// Options tune a Planner. Zero values select the defaults; a negative SupplementLimit
// disables the RecipeFetcher.
type Options struct {
	AssistTimeout    time.Duration
	UrgentWithinDays int
	RepeatFill       bool
	SupplementLimit  int
	Synonyms         map[string]string
	Now              func() time.Time
	Logger           pantryplanner.RunLogger
	Tracer           trace.Tracer
	Meter            metric.Meter
}

const (
	DefaultAssistTimeout    = 30 * time.Second
	DefaultUrgentWithinDays = 3
	DefaultSupplementLimit  = 20
)

func (o Options) withDefaults() Options {
	if o.AssistTimeout <= 0 {
		o.AssistTimeout = DefaultAssistTimeout
	}
	if o.UrgentWithinDays <= 0 {
		o.UrgentWithinDays = DefaultUrgentWithinDays
	}
	switch {
	case o.SupplementLimit == 0:
		o.SupplementLimit = DefaultSupplementLimit
	case o.SupplementLimit < 0:
		o.SupplementLimit = 0 // fetching disabled
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = pantryplanner.NewNoOpRunLogger()
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(pantryplanner.TracerNamePlanner)
	}
	if o.Meter == nil {
		o.Meter = otel.Meter(pantryplanner.MeterNamePlanner)
	}
	return o
}

// Input is everything one run plans from.
type Input struct {
	Pantry      []PantryItem
	Selected    []Recipe
	Preferences Preferences
	// Pinned items are placed before anything else and keep their slots.
	Pinned []MealPlanItem
}

// Result is the published outcome of a run.
type Result struct {
	Meals        []MealPlanItem `json:"meals"`
	Fill         FillRate       `json:"fill"`
	Explanation  string         `json:"explanation"`
	Source       Source         `json:"source"`
	Explanations *Explanations  `json:"explanations,omitempty"`
	ShoppingList []string       `json:"shoppingList"`
	Pool         []ScoredRecipe `json:"candidatePool"`
}

// Planner runs the planning state machine: build the candidate pool, ask the assisted
// planner, and fall back to the greedy allocator when it fails.
type Planner struct {
	assist  AssistedPlanner
	fetcher RecipeFetcher
	matcher *Matcher
	opts    Options

	runs     metric.Int64Counter
	failures metric.Int64Counter
	dropped  metric.Int64Counter
	filled   metric.Int64Histogram
}

// NewPlanner returns a Planner. assist and fetcher may be nil.
func NewPlanner(assist AssistedPlanner, fetcher RecipeFetcher, opts Options) *Planner {
	opts = opts.withDefaults()
	p := &Planner{
		assist:  assist,
		fetcher: fetcher,
		matcher: NewMatcher(opts.Synonyms),
		opts:    opts,
	}

	// instrument creation only fails on invalid names; the no-op fallbacks are fine then
	p.runs, _ = opts.Meter.Int64Counter("planner_runs_total",
		metric.WithDescription("Total number of planning runs by source"))
	p.failures, _ = opts.Meter.Int64Counter("planner_assisted_failures_total",
		metric.WithDescription("Total number of assisted planning attempts that fell back to greedy"))
	p.dropped, _ = opts.Meter.Int64Counter("planner_assignments_dropped_total",
		metric.WithDescription("Total number of assisted assignments rejected during validation"))
	p.filled, _ = opts.Meter.Int64Histogram("planner_slots_filled",
		metric.WithDescription("Number of slots filled per run"))

	return p
}

// Plan produces a weekly plan. The only error is ErrNoRecipes: assisted failures are
// absorbed by the greedy fallback, and slots that cannot be filled are reported in
// Result.Fill.
func (p *Planner) Plan(ctx context.Context, in Input) (Result, error) {
	ctx, span := p.opts.Tracer.Start(ctx, "Planner.Plan")
	defer span.End()

	in = in.clone()
	now := p.opts.Now()
	mealsPerDay := clampMeals(in.Preferences.MealsPerDay)
	in.Preferences.MealsPerDay = mealsPerDay
	scorer := NewScorer(p.matcher, now)

	slog.Info("PLANNER: Starting run",
		"selected_recipes", len(in.Selected),
		"pantry_items", len(in.Pantry),
		"pinned", len(in.Pinned),
		"meals_per_day", mealsPerDay,
		"assisted", p.assist != nil,
	)
	p.logPhase(PhaseStart, map[string]any{
		"selected_recipes": len(in.Selected),
		"pantry_items":     len(in.Pantry),
		"pinned":           len(in.Pinned),
		"meals_per_day":    mealsPerDay,
	}, nil)

	// BUILD_CANDIDATE_POOL
	pool, selected := p.buildPool(ctx, in, scorer)
	p.logPhase(PhaseBuildPool, map[string]any{
		"pool_size": len(pool),
		"selected":  len(selected),
		"fetched":   len(pool) - len(selected),
	}, nil)
	span.AddEvent("Candidate pool built", trace.WithAttributes(
		attribute.Int("pool_size", len(pool)),
		attribute.Int("selected_count", len(selected)),
	))
	if len(pool) == 0 {
		p.logPhase(PhaseDone, nil, ErrNoRecipes)
		span.SetStatus(codes.Error, "no recipes")
		span.RecordError(ErrNoRecipes)
		slog.Error("PLANNER: No recipes to plan with")
		return Result{}, ErrNoRecipes
	}

	st := NewState(p.matcher)
	p.seedPinned(st, in.Pinned, mealsPerDay)

	ranked := scorer.Rank(pool, in.Pantry, st)
	for i := range ranked {
		ranked[i].UserSelected = selected[ranked[i].ID]
	}

	source := SourceGreedy
	var explanations *Explanations
	assisted := false

	if p.assist != nil {
		resp, err := p.tryAssisted(ctx, span, ranked, in, st, now)
		if err == nil {
			accepted := p.commitAssisted(ctx, resp, pool, in.Pantry, mealsPerDay, st, scorer)
			if accepted > 0 {
				assisted = true
				source = SourceAssisted
				ex := resp.Explanations
				explanations = &ex
				p.logPhase(PhaseCommitAssisted, map[string]any{
					"proposed": len(resp.MealPlan),
					"accepted": accepted,
				}, nil)
			} else {
				err = fmt.Errorf("%w: no assignment survived validation", ErrMalformedResponse)
			}
		}
		if err != nil {
			p.failures.Add(ctx, 1)
			span.AddEvent("Assisted planning failed", trace.WithAttributes(attribute.String("error", err.Error())))
			p.logPhase(PhaseAssistedFailed, nil, err)
			slog.Warn("PLANNER: Assisted planning failed, falling back to greedy", "error", err)
		}
	}

	greedy := NewGreedy(scorer, p.opts.UrgentWithinDays, p.opts.RepeatFill)
	needed := DaysInWeek * mealsPerDay
	var alloc Allocation
	if st.Len() < needed {
		alloc = greedy.Allocate(pool, in.Pantry, mealsPerDay, st)
		if assisted && alloc.Filled > 0 {
			source = SourceAssistedGapFill
		}
		p.logPhase(PhaseRunGreedy, map[string]any{
			"filled":   alloc.Filled,
			"unfilled": len(alloc.Unfilled),
			"relaxed":  relaxedDetail(alloc.Relaxed),
		}, nil)
	}

	meals := st.Meals()
	res := Result{
		Meals:        meals,
		Fill:         FillRate{SlotsFilled: len(meals), SlotsNeeded: needed},
		Source:       source,
		Explanations: explanations,
		ShoppingList: shoppingList(st, in.Pantry, p.matcher),
		Pool:         ranked,
	}
	res.Explanation = explain(res, st, in.Pantry, scorer, alloc, pool, p.opts.UrgentWithinDays)

	p.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("source", string(source))))
	p.filled.Record(ctx, int64(res.Fill.SlotsFilled))
	span.SetAttributes(
		attribute.String("plan.source", string(source)),
		attribute.Int("plan.slots_filled", res.Fill.SlotsFilled),
		attribute.Int("plan.slots_needed", res.Fill.SlotsNeeded),
	)
	p.logPhase(PhaseDone, map[string]any{
		"source":        string(source),
		"slots_filled":  res.Fill.SlotsFilled,
		"slots_needed":  res.Fill.SlotsNeeded,
		"shopping_list": len(res.ShoppingList),
	}, nil)

	slog.Info("PLANNER: Run complete",
		"source", source,
		"slots_filled", res.Fill.SlotsFilled,
		"slots_needed", res.Fill.SlotsNeeded,
		"shopping_list_size", len(res.ShoppingList),
	)
	return res, nil
}

// Regenerate discards current except the items named by pinnedIDs or already marked
// Pinned, and plans again around them.
func (p *Planner) Regenerate(ctx context.Context, in Input, current []MealPlanItem, pinnedIDs ...string) (Result, error) {
	keep := make(map[string]bool, len(pinnedIDs))
	for _, id := range pinnedIDs {
		keep[id] = true
	}
	pinned := make([]MealPlanItem, 0, len(in.Pinned)+len(pinnedIDs))
	for _, m := range current {
		if keep[m.ID] || m.Pinned {
			pinned = append(pinned, m)
		}
	}
	in.Pinned = append(pinned, in.Pinned...)

	slog.Info("PLANNER: Regenerating plan", "current_meals", len(current), "kept", len(pinned))
	return p.Plan(ctx, in)
}

// buildPool returns the selected recipes followed by fetched ones, de-duplicated by id,
// plus the set of selected ids.
func (p *Planner) buildPool(ctx context.Context, in Input, scorer *Scorer) ([]Recipe, map[string]bool) {
	selected := make(map[string]bool, len(in.Selected))
	pool := make([]Recipe, 0, len(in.Selected)+p.opts.SupplementLimit)
	for _, r := range in.Selected {
		if r.ID == "" || selected[r.ID] {
			continue
		}
		selected[r.ID] = true
		pool = append(pool, r)
	}

	if p.fetcher == nil || p.opts.SupplementLimit == 0 {
		return pool, selected
	}

	q := RecipeQuery{
		Cuisines: in.Preferences.Cuisines,
		Dietary:  in.Preferences.Dietary,
		Limit:    p.opts.SupplementLimit,
	}
	for _, item := range scorer.urgentItems(in.Pantry, NoExpiry-1) {
		if len(q.Ingredients) == soonToExpireLimit {
			break
		}
		q.Ingredients = append(q.Ingredients, item.Name)
	}
	for id := range selected {
		q.ExcludeIDs = append(q.ExcludeIDs, id)
	}

	fetched, err := p.fetcher.FetchRecipes(ctx, q)
	if err != nil {
		slog.Warn("PLANNER: Recipe fetch failed, continuing with selected recipes", "error", err)
		return pool, selected
	}

	seen := make(map[string]bool, len(selected)+len(fetched))
	for id := range selected {
		seen[id] = true
	}
	for _, r := range fetched {
		if r.ID == "" || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		pool = append(pool, r)
	}
	slog.Info("PLANNER: Fetched supplementary recipes", "requested", q.Limit, "returned", len(fetched), "pool_size", len(pool))
	return pool, selected
}

func (p *Planner) seedPinned(st *State, pinned []MealPlanItem, mealsPerDay int) {
	for _, item := range pinned {
		slot := Slot{Day: item.Day, MealType: item.MealType}
		if !slot.valid(mealsPerDay) {
			slog.Warn("PLANNER: Dropping pinned meal outside the planned slots", "recipe_id", item.RecipeID, "day", item.Day, "meal_type", item.MealType)
			continue
		}
		item.Pinned = true
		if err := st.Seed(item); err != nil {
			slog.Warn("PLANNER: Dropping pinned meal", "error", err, "recipe_id", item.RecipeID)
		}
	}
}

// tryAssisted sends the request under the assist timeout and validates the payload shape.
func (p *Planner) tryAssisted(ctx context.Context, span trace.Span, ranked []ScoredRecipe, in Input, st *State, now time.Time) (Response, error) {
	req := BuildRequest(ranked, in.Pantry, in.Preferences, st, now)
	p.logPhase(PhaseTryAssisted, map[string]any{
		"recipes":         len(req.Recipes),
		"soon_to_expire":  len(req.SoonToExpireItems),
		"existing_days":   len(req.ExistingAssignments),
		"timeout_seconds": p.opts.AssistTimeout.Seconds(),
	}, nil)
	slog.Info("PLANNER: Requesting assisted plan", "recipes", len(req.Recipes), "timeout", p.opts.AssistTimeout)

	actx, cancel := context.WithTimeout(ctx, p.opts.AssistTimeout)
	defer cancel()

	start := time.Now()
	resp, err := p.assist.Plan(actx, req)
	elapsed := time.Since(start)
	span.AddEvent("Assisted planner responded", trace.WithAttributes(
		attribute.Float64("assist_response_time_seconds", elapsed.Seconds()),
	))
	if err != nil {
		if errors.Is(actx.Err(), context.DeadlineExceeded) {
			return Response{}, fmt.Errorf("assisted planner timed out after %s: %w", p.opts.AssistTimeout, err)
		}
		return Response{}, fmt.Errorf("assisted planner: %w", err)
	}
	if len(resp.MealPlan) == 0 {
		return Response{}, fmt.Errorf("%w: mealPlan is empty", ErrMalformedResponse)
	}

	p.logPhase(PhaseAssistedOK, map[string]any{
		"assignments":      len(resp.MealPlan),
		"response_seconds": elapsed.Seconds(),
	}, nil)
	return resp, nil
}

// commitAssisted commits every valid assignment of resp and returns how many were kept.
// Assignments naming an unknown recipe, a slot outside the plan, an occupied slot or a
// recipe at its weekly cap are dropped one by one, as are repeats on the same or an
// adjacent day while another recipe could take the slot.
func (p *Planner) commitAssisted(ctx context.Context, resp Response, pool []Recipe, pantry []PantryItem, mealsPerDay int, st *State, scorer *Scorer) int {
	byID := make(map[string]Recipe, len(pool))
	for _, r := range pool {
		byID[r.ID] = r
	}

	accepted := 0
	for _, a := range resp.MealPlan {
		drop := func(reason string, args ...any) {
			p.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
			slog.Warn("ASSIST: Dropping assignment", append([]any{
				"reason", reason,
				"recipe_id", a.RecipeID,
				"day", a.DayIndex,
				"meal_type", a.MealType,
			}, args...)...)
		}

		r, ok := byID[a.RecipeID]
		if !ok {
			drop("unknown_recipe")
			continue
		}
		mt, ok := ParseMealType(a.MealType)
		if !ok {
			drop("unknown_meal_type")
			continue
		}
		slot := Slot{Day: a.DayIndex, MealType: mt}
		if !slot.valid(mealsPerDay) {
			drop("invalid_slot")
			continue
		}
		if st.usedNear(r.ID, slot.Day) && hasAlternative(pool, r.ID, slot.Day, st) {
			drop("consecutive_day")
			continue
		}
		if _, err := st.Commit(r, slot, scorer.Score(r, pantry, st)); err != nil {
			switch {
			case errors.Is(err, ErrSlotTaken):
				drop("slot_taken")
			case errors.Is(err, ErrUsageCap):
				drop("usage_cap")
			default:
				drop("rejected", "error", err)
			}
			continue
		}
		accepted++
	}
	return accepted
}

// hasAlternative reports whether a recipe other than recipeID is under its weekly cap and
// not placed on or next to day.
func hasAlternative(pool []Recipe, recipeID string, day int, st *State) bool {
	for _, r := range pool {
		if r.ID != recipeID && st.UsageCount(r.ID) < MaxUsesPerWeek && !st.usedNear(r.ID, day) {
			return true
		}
	}
	return false
}

func (p *Planner) logPhase(phase string, detail map[string]any, err error) {
	entry := pantryplanner.PhaseLog{
		Phase:     phase,
		Timestamp: time.Now(),
		Detail:    detail,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if lerr := p.opts.Logger.LogPhase(entry); lerr != nil {
		slog.Error("PLANNER: Failed to record phase", "phase", phase, "error", lerr)
	}
}

// clone copies the caller's slices so the run never observes later mutations.
func (in Input) clone() Input {
	out := in
	out.Pantry = append([]PantryItem(nil), in.Pantry...)
	out.Selected = append([]Recipe(nil), in.Selected...)
	out.Pinned = append([]MealPlanItem(nil), in.Pinned...)
	out.Preferences.Dietary = append([]string(nil), in.Preferences.Dietary...)
	out.Preferences.Cuisines = append([]string(nil), in.Preferences.Cuisines...)
	return out
}

func relaxedDetail(relaxed map[Tier]int) map[string]int {
	out := make(map[string]int, len(relaxed))
	for t, n := range relaxed {
		out[t.String()] = n
	}
	return out
}

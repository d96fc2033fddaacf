package reckon

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

const (
	// FinalStage requests a final version. It is always allowed.
	FinalStage = "final"

	// SnapshotStage is the only stage in snapshot mode.
	SnapshotStage = "snapshot"

	snapshotPreRelease = "SNAPSHOT"
	timestampLayout    = "20060102T150405Z07"
)

// Config configures a Reckoner. Exactly one of Stages or Snapshots must be set.
type Config struct {
	// Supplier provides the inventory for each reckoning. Required.
	Supplier InventorySupplier

	// Stages are the allowed pre-release stage names. "final" is implied and
	// the lexically smallest other stage is the default for development builds.
	Stages []string

	// Snapshots selects SNAPSHOT pre-releases instead of named stages.
	Snapshots bool

	// DefaultInferredScope is used when no scope is requested or inferable. Defaults to Minor.
	DefaultInferredScope Scope

	// ParallelBranchScope is the least scope used to step past a version being
	// developed on a parallel branch. Defaults to Patch.
	ParallelBranchScope Scope

	// ScopeCalculator requests a scope. Defaults to NoScope.
	ScopeCalculator ScopeCalculator

	// StageCalculator requests a stage. Defaults to NoStage.
	StageCalculator StageCalculator

	// Clock stamps development builds that have no commit to name. Defaults to the real clock.
	Clock clock.PassiveClock

	// TagWriter names the tag a version would be released under. Defaults to DefaultTagWriter.
	TagWriter TagWriter
}

// Reckoner computes the version of the repository's current state.
type Reckoner struct {
	supplier      InventorySupplier
	stages        map[string]bool
	stageNames    []string
	defaultStage  string
	snapshots     bool
	defaultScope  Scope
	parallelScope Scope
	scopeCalc     ScopeCalculator
	stageCalc     StageCalculator
	clock         clock.PassiveClock
	tagWriter     TagWriter
}

// New validates cfg and returns a Reckoner. Configuration problems are
// reported here rather than on first use.
func New(cfg Config) (*Reckoner, error) {
	if cfg.Supplier == nil {
		return nil, configError(nil, "an inventory supplier is required")
	}

	r := &Reckoner{
		supplier:      cfg.Supplier,
		stages:        map[string]bool{FinalStage: true},
		snapshots:     cfg.Snapshots,
		defaultScope:  cfg.DefaultInferredScope,
		parallelScope: cfg.ParallelBranchScope,
		scopeCalc:     cfg.ScopeCalculator,
		stageCalc:     cfg.StageCalculator,
		clock:         cfg.Clock,
		tagWriter:     cfg.TagWriter,
	}

	switch {
	case cfg.Snapshots && len(cfg.Stages) > 0:
		return nil, configError(map[string]any{"stages": cfg.Stages}, "snapshots cannot be combined with explicit stages")
	case cfg.Snapshots:
		r.stages[SnapshotStage] = true
		r.defaultStage = SnapshotStage
	case len(cfg.Stages) == 0:
		return nil, configError(nil, "either stages or snapshots must be configured")
	default:
		var nonFinal []string
		for _, stage := range cfg.Stages {
			stage = normalizeInput(stage)
			if stage == SnapshotStage {
				return nil, configError(map[string]any{"stages": cfg.Stages}, "%q is reserved for snapshot mode, it cannot be a stage", SnapshotStage)
			}
			if stage == "" || stage == FinalStage || r.stages[stage] {
				continue
			}
			r.stages[stage] = true
			nonFinal = append(nonFinal, stage)
		}
		if len(nonFinal) == 0 {
			return nil, configError(map[string]any{"stages": cfg.Stages}, "no non-final stages provided")
		}
		sort.Strings(nonFinal)
		r.defaultStage = nonFinal[0]
	}

	for stage := range r.stages {
		r.stageNames = append(r.stageNames, stage)
	}
	sort.Strings(r.stageNames)

	if r.defaultScope == 0 {
		r.defaultScope = Minor
	}
	if r.parallelScope == 0 {
		r.parallelScope = Patch
	}
	if r.scopeCalc == nil {
		r.scopeCalc = NoScope
	}
	if r.stageCalc == nil {
		r.stageCalc = NoStage
	}
	if r.clock == nil {
		r.clock = clock.RealClock{}
	}
	if r.tagWriter == nil {
		r.tagWriter = DefaultTagWriter
	}
	return r, nil
}

// TagName returns the tag name v would be released under.
func (r *Reckoner) TagName(v Version) string {
	return r.tagWriter(v)
}

// Reckon fetches a fresh inventory and computes the version for it.
func (r *Reckoner) Reckon() (Version, error) {
	inv, err := r.supplier.Inventory()
	if err != nil {
		return Version{}, fmt.Errorf("getting inventory: %w", err)
	}
	return r.ReckonInventory(inv)
}

// ReckonInventory computes the version for inv: the target normal, then the
// pre-release and build parts, then the checks every result must pass.
func (r *Reckoner) ReckonInventory(inv Inventory) (Version, error) {
	if err := inv.Validate(); err != nil {
		return Version{}, err
	}

	targetNormal, scope, err := r.reckonNormal(inv)
	if err != nil {
		return Version{}, err
	}

	stage, requested, err := r.requestedStage(inv, targetNormal)
	if err != nil {
		return Version{}, err
	}

	if requested {
		targetNormal = r.avoidParallel(inv, targetNormal, scope)
	}

	version, err := r.reckonTargetVersion(inv, targetNormal, stage, requested)
	if err != nil {
		return Version{}, err
	}

	if err := r.checkInvariants(inv, version, requested); err != nil {
		return Version{}, err
	}

	logger("reckoner").Debug("reckoned version", zap.Stringer("version", version))
	return version, nil
}

func (r *Reckoner) reckonNormal(inv Inventory) (Version, Scope, error) {
	log := logger("reckoner")

	scope, ok, err := r.scopeCalc(inv)
	if err != nil {
		return Version{}, 0, err
	}
	if ok {
		log.Debug("using requested scope", zap.Stringer("scope", scope))
	} else {
		scope, ok, err = InferScope(inv.BaseNormal, inv.BaseVersion)
		if err != nil {
			return Version{}, 0, err
		}
		if ok {
			log.Debug("inferred scope from base version", zap.Stringer("scope", scope))
		} else {
			scope = r.defaultScope
			log.Debug("using default scope", zap.Stringer("scope", scope))
		}
	}

	return inv.BaseNormal.IncrementNormal(scope), scope, nil
}

// avoidParallel steps past a normal already being developed on a parallel
// branch. Only one extra step is taken.
func (r *Reckoner) avoidParallel(inv Inventory, targetNormal Version, scope Scope) Version {
	if !inv.ParallelNormals.Contains(targetNormal) {
		return targetNormal
	}

	var bumped Version
	if scope < r.parallelScope {
		bumped = inv.BaseNormal.IncrementNormal(r.parallelScope)
	} else {
		bumped = targetNormal.IncrementNormal(scope)
	}
	logger("reckoner").Debug("skipping version developed on a parallel branch",
		zap.Stringer("skipped", targetNormal), zap.Stringer("version", bumped))
	return bumped
}

func (r *Reckoner) requestedStage(inv Inventory, targetNormal Version) (string, bool, error) {
	stage, ok, err := r.stageCalc(inv, targetNormal)
	if err != nil || !ok {
		return "", false, err
	}
	stage = normalizeInput(stage)
	if stage == "" {
		return "", false, nil
	}
	if !r.stages[stage] {
		return "", false, inputError(
			map[string]any{"stage": stage, "valid": r.stageNames},
			"stage %q is not one of: %s", stage, strings.Join(r.stageNames, ", "))
	}
	return stage, true, nil
}

func (r *Reckoner) reckonTargetVersion(inv Inventory, targetNormal Version, stage string, requested bool) (Version, error) {
	if stage == FinalStage {
		return targetNormal, nil
	}

	// an unmodified, already versioned commit builds as the same version
	if inv.Clean && inv.CurrentVersion != nil && !requested {
		return *inv.CurrentVersion, nil
	}

	// continue an in-progress stage sequence only while on the same normal
	targetBase := targetNormal
	if inv.BaseVersion.Normal().Equal(targetNormal) {
		targetBase = inv.BaseVersion
	}

	baseStage, ok := targetBase.Stage()
	if !ok {
		baseStage = Stage{Name: r.defaultStage}
	}

	switch {
	case r.snapshots:
		return targetBase.withPreRelease(snapshotPreRelease)
	case !requested:
		v, err := targetBase.withPreRelease(fmt.Sprintf("%s.%d.%d", baseStage.Name, baseStage.Num, inv.CommitsSinceBase))
		if err != nil {
			return Version{}, err
		}
		return v.withBuild(r.buildMetadata(inv))
	case stage == baseStage.Name:
		return targetBase.withPreRelease(fmt.Sprintf("%s.%d", stage, baseStage.Num+1))
	default:
		return targetBase.withPreRelease(stage + ".1")
	}
}

func (r *Reckoner) buildMetadata(inv Inventory) string {
	if inv.Clean && inv.CommitID != "" {
		return inv.CommitID
	}
	return r.clock.Now().UTC().Format(timestampLayout)
}

func (r *Reckoner) checkInvariants(inv Inventory, v Version, requested bool) error {
	if v.IsSignificant() && !inv.Clean {
		return stateError(
			map[string]any{"version": v.String(), "clean": inv.Clean},
			"cannot release significant version %s from a repository with uncommitted changes", v)
	}

	if !inv.IsCurrent(v) {
		if inv.ClaimedVersions.Contains(v) {
			return stateError(
				map[string]any{"version": v.String(), "claimed": v.String()},
				"reckoned version %s has already been released", v)
		}

		// significant pre-releases and requested snapshots of a released normal would sort before it
		normalClaimed := !v.IsFinal() && inv.ClaimedVersions.Contains(v.Normal())
		if normalClaimed && (v.IsSignificant() || (r.snapshots && requested)) {
			return stateError(
				map[string]any{"version": v.String(), "claimed": v.Normal().String()},
				"reckoned version %s targets normal version %s, which has already been released", v, v.Normal())
		}
	}

	if v.LessThan(inv.BaseVersion) {
		return stateError(
			map[string]any{"version": v.String(), "base": inv.BaseVersion.String()},
			"reckoned version %s is (and cannot be) less than base version %s", v, inv.BaseVersion)
	}
	return nil
}

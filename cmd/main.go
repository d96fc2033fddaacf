package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/jaxxstorm/reckon"
	"go.uber.org/zap"
)

// Version will be set by build process
var Version = "dev"

// Globals are flags shared by every command.
type Globals struct {
	Config    string `help:"YAML config file (default: .reckon.yaml in the repository root)" env:"RECKON_CONFIG" type:"path"`
	LogLevel  string `help:"Log level" default:"warn" enum:"debug,info,warn,error" env:"RECKON_LOG_LEVEL"`
	LogFormat string `help:"Log format" default:"console" enum:"console,json" env:"RECKON_LOG_FORMAT"`
}

type CLI struct {
	Globals

	Infer   InferCmd   `cmd:"" default:"withargs" help:"Infer a version from the repository's history (default)"`
	Parse   ParseCmd   `cmd:"" help:"Parse a version into its parts"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

func main() {
	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("reckon"),
		kong.Description("Infer a project's next semantic version from your Git repository"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	logger, err := newLogger(cli.LogLevel, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	reckon.SetLogger(logger)

	err = ctx.Run(&cli.Globals, logger)
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for misuse (bad flags, config or input) and 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, reckon.ErrConfiguration) || errors.Is(err, reckon.ErrInput) {
		return 2
	}
	return 1
}

type VersionCmd struct {
	JSON bool `short:"j" help:"Output as JSON"`
}

func (c *VersionCmd) Run() error {
	versionInfo := map[string]string{
		"version": Version,
		"name":    "reckon",
	}

	if c.JSON {
		return json.NewEncoder(os.Stdout).Encode(versionInfo)
	}

	fmt.Printf("reckon version %s\n", Version)
	return nil
}

type InferCmd struct {
	Repo             string   `short:"r" help:"Repository path (default: current directory)" env:"RECKON_REPO"`
	Stages           []string `help:"Allowed pre-release stages, e.g. beta,rc,final. Cannot be used with --snapshots" env:"RECKON_STAGES" sep:","`
	Snapshots        bool     `help:"Use SNAPSHOT pre-releases. Cannot be used with --stages" env:"RECKON_SNAPSHOTS"`
	Scope            string   `help:"Scope of change since the last final version (major, minor, patch)" env:"RECKON_SCOPE"`
	Stage            string   `help:"Stage of development for this version" env:"RECKON_STAGE"`
	ScopeFromCommits bool     `help:"Read the scope from commit messages when --scope is not given" env:"RECKON_SCOPE_FROM_COMMITS"`
	DefaultScope     string   `help:"Scope used when none is requested or inferable (default: minor)" env:"RECKON_DEFAULT_SCOPE"`
	ParallelScope    string   `help:"Least scope used to step past a version on a parallel branch (default: patch)" env:"RECKON_PARALLEL_SCOPE"`
	TagPrefix        string   `help:"Only consider tags with this prefix (e.g., 'sdk/v')" env:"RECKON_TAG_PREFIX"`
	TagPattern       string   `help:"Regex pattern to filter tags (e.g., '^sdk/')" env:"RECKON_TAG_PATTERN"`
	Language         string   `short:"l" default:"semver" enum:"generic,semver,python,javascript,js,node,dotnet,csharp,go,golang" help:"Output format"`
	JSON             bool     `short:"j" help:"Output as JSON, including the inventory the version was reckoned from"`
}

type inventoryOutput struct {
	CommitID         string           `json:"commitId,omitempty"`
	Clean            bool             `json:"clean"`
	CurrentVersion   *reckon.Version  `json:"currentVersion,omitempty"`
	BaseVersion      reckon.Version   `json:"baseVersion"`
	BaseNormal       reckon.Version   `json:"baseNormal"`
	CommitsSinceBase int              `json:"commitsSinceBase"`
	ParallelNormals  []reckon.Version `json:"parallelNormals"`
}

type inferOutput struct {
	Version   reckon.Version          `json:"version"`
	Tag       string                  `json:"tag"`
	Languages reckon.LanguageVersions `json:"languages"`
	Inventory inventoryOutput         `json:"inventory"`
}

func (c *InferCmd) Run(g *Globals, logger *zap.Logger) error {
	log := logger.Named("infer")

	repoPath := c.Repo
	if repoPath == "" {
		var err error
		repoPath, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
	}

	repo, err := reckon.OpenRepository(repoPath)
	if err != nil {
		return fmt.Errorf("opening repository at %s: %w", repoPath, err)
	}

	root := repoPath
	if workTree, err := repo.Worktree(); err == nil {
		root = workTree.Filesystem.Root()
	}

	fileCfg, err := loadFileConfig(g.Config, root)
	if err != nil {
		return err
	}

	cfg, err := c.reckonerConfig(fileCfg, reckon.NewGitRepository(repo))
	if err != nil {
		return err
	}

	reckoner, err := reckon.New(cfg)
	if err != nil {
		return err
	}

	inv, err := cfg.Supplier.Inventory()
	if err != nil {
		return fmt.Errorf("reading repository: %w", err)
	}

	version, err := reckoner.ReckonInventory(inv)
	if err != nil {
		return err
	}
	log.Info("reckoned version", zap.Stringer("version", version), zap.String("repo", root))

	if c.JSON {
		out := inferOutput{
			Version:   version,
			Tag:       reckoner.TagName(version),
			Languages: reckon.Languages(version),
			Inventory: inventoryOutput{
				CommitID:         inv.CommitID,
				Clean:            inv.Clean,
				CurrentVersion:   inv.CurrentVersion,
				BaseVersion:      inv.BaseVersion,
				BaseNormal:       inv.BaseNormal,
				CommitsSinceBase: inv.CommitsSinceBase,
				ParallelNormals:  inv.ParallelNormals.Sorted(),
			},
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	output, err := reckon.Languages(version).Get(c.Language)
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}

// reckonerConfig merges flags with the config file, flags winning.
func (c *InferCmd) reckonerConfig(file *FileConfig, repo reckon.Repository) (reckon.Config, error) {
	cfg := reckon.Config{
		Stages:    c.Stages,
		Snapshots: c.Snapshots,
	}
	if len(cfg.Stages) == 0 && !cfg.Snapshots {
		cfg.Stages = file.Stages
		cfg.Snapshots = file.Snapshots
	}

	var err error
	if cfg.DefaultInferredScope, err = optionalScope(c.DefaultScope, file.DefaultInferredScope); err != nil {
		return reckon.Config{}, err
	}
	if cfg.ParallelBranchScope, err = optionalScope(c.ParallelScope, file.ParallelBranchScope); err != nil {
		return reckon.Config{}, err
	}

	userScope := reckon.UserScope(func(reckon.Inventory) string { return c.Scope })
	scopeCalc := file.ScopeCalc
	if c.ScopeFromCommits {
		scopeCalc = scopeCalcUserOrCommits
	}
	switch scopeCalc {
	case scopeCalcCommitMessages:
		cfg.ScopeCalculator = reckon.CommitMessageScopes()
	case scopeCalcUserOrCommits:
		cfg.ScopeCalculator = userScope.Or(reckon.CommitMessageScopes())
	default:
		cfg.ScopeCalculator = userScope
	}
	cfg.StageCalculator = reckon.UserStage(func(reckon.Inventory, reckon.Version) string { return c.Stage })

	prefix := firstNonEmpty(c.TagPrefix, file.TagPrefix)
	parser := reckon.TagParser(reckon.DefaultTagParser)
	if prefix != "" {
		parser = reckon.PrefixTagParser(prefix)
		cfg.TagWriter = reckon.PrefixTagWriter(prefix)
	}

	if pattern := firstNonEmpty(c.TagPattern, file.TagPattern); pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return reckon.Config{}, &reckon.Error{
				Kind:    reckon.KindInput,
				Message: fmt.Sprintf("invalid tag pattern %q", pattern),
				Cause:   err,
			}
		}
		parser = reckon.FilteredTagParser(re, parser)
	}

	cfg.Supplier = reckon.NewRepositorySupplier(repo, parser)
	return cfg, nil
}

func optionalScope(values ...string) (reckon.Scope, error) {
	value := firstNonEmpty(values...)
	if value == "" {
		return 0, nil
	}
	return reckon.ParseScope(value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Command pkdex records imported Pokémon in the Pokédex of a Generation 6
// save file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"

	"github.com/FocuswithJustin/pkdex/core/cas"
	pkerrors "github.com/FocuswithJustin/pkdex/core/errors"
	"github.com/FocuswithJustin/pkdex/core/game"
	"github.com/FocuswithJustin/pkdex/core/names"
	"github.com/FocuswithJustin/pkdex/core/personal"
	"github.com/FocuswithJustin/pkdex/core/pokedex"
	"github.com/FocuswithJustin/pkdex/core/sqlite"
	"github.com/FocuswithJustin/pkdex/internal/config"
	"github.com/FocuswithJustin/pkdex/internal/journal"
	"github.com/FocuswithJustin/pkdex/internal/logging"
	"github.com/FocuswithJustin/pkdex/internal/savefile"
	"github.com/FocuswithJustin/pkdex/internal/specimen"
	"github.com/FocuswithJustin/pkdex/internal/validation"
)

const version = "0.4.0"

// stdout receives command output; tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// loadConfig reads the environment configuration.
var loadConfig = config.Load

// CLI defines the command-line interface for pkdex. Global flags override
// the PKDEX_* environment variables.
var CLI struct {
	Game      string `help:"Game family (xy or oras); detected from the save size when empty"`
	DataDir   string `name:"data-dir" help:"Directory holding backups and the import journal" type:"path"`
	Personal  string `help:"Personal table used for form counts" type:"path"`
	NamesDir  string `name:"names-dir" help:"Directory of localized name tables" type:"path"`
	Lang      string `help:"Language of the name tables (en, fr, de, es)"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" help:"Log format (text or json)"`

	Import  ImportCmd  `cmd:"" help:"Record specimens in a save's Pokédex"`
	Check   CheckCmd   `cmd:"" help:"Validate specimens against a save without writing"`
	Inspect InspectCmd `cmd:"" help:"Show the Pokédex state of species in a save"`
	History HistoryCmd `cmd:"" help:"List recorded imports"`
	Restore RestoreCmd `cmd:"" help:"Restore a save from a backup"`
	Names   NamesCmd   `cmd:"" help:"Look up entries in the localized name tables"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// settings resolves the environment configuration with flag overrides and
// initializes logging from it.
func settings() (config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return config.Config{}, err
	}
	override := func(dst *string, flag string) {
		if flag != "" {
			*dst = flag
		}
	}
	override(&cfg.Game, CLI.Game)
	override(&cfg.DataDir, CLI.DataDir)
	override(&cfg.Personal, CLI.Personal)
	override(&cfg.NamesDir, CLI.NamesDir)
	override(&cfg.Lang, CLI.Lang)
	override(&cfg.LogLevel, CLI.LogLevel)
	override(&cfg.LogFormat, CLI.LogFormat)

	if err := cfg.InitLogging(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// session bundles what the save-facing commands need.
type session struct {
	cfg    config.Config
	save   *savefile.Save
	engine *pokedex.Engine
}

func openSession(path string) (*session, error) {
	cfg, err := settings()
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("invalid save path: %w", err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	var layout game.Layout
	if cfg.Game != "" {
		v, err := game.Parse(cfg.Game)
		if err != nil {
			return nil, err
		}
		if layout, err = cfg.Layout(v); err != nil {
			return nil, err
		}
	}

	save, err := savefile.Read(path, layout)
	if err != nil {
		return nil, err
	}
	if cfg.Game == "" {
		// Reapply configured offsets to the detected family.
		if save.Layout, err = cfg.Layout(save.Layout.Version); err != nil {
			return nil, err
		}
	}

	provider, err := loadProvider(cfg)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:    cfg,
		save:   save,
		engine: pokedex.New(save.Layout, provider),
	}, nil
}

func loadProvider(cfg config.Config) (personal.Provider, error) {
	if cfg.Personal == "" {
		logging.Warn("no personal table configured, form registry will not be updated")
		return nil, nil
	}
	t, err := personal.Load(cfg.Personal)
	if err != nil {
		return nil, fmt.Errorf("failed to load personal table: %w", err)
	}
	logging.Debug("personal table loaded", "path", cfg.Personal, "species", t.Len())
	return t, nil
}

// speciesNames returns the species table for cfg, or nil when none is
// configured or it cannot be read.
func speciesNames(cfg config.Config) *names.Table {
	if cfg.NamesDir == "" {
		return nil
	}
	t, err := names.Load(cfg.NamesDir, cfg.Lang, names.Species)
	if err != nil {
		logging.Warn("species names unavailable", "error", err)
		return nil
	}
	return t
}

// collect gathers specimens from expressions and an optional batch file.
func collect(exprs []string, batch string) ([]specimen.Item, error) {
	var items []specimen.Item
	for i, e := range exprs {
		rec, err := specimen.Parse(e)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		items = append(items, specimen.Item{Source: fmt.Sprintf("arg%d", i+1), Record: rec})
	}
	if batch != "" {
		more, err := specimen.LoadFile(batch)
		if err != nil {
			return nil, err
		}
		items = append(items, more...)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no specimens given")
	}
	return items, nil
}

// checkAll validates every item and reports all failures at once.
func (s *session) checkAll(ctx context.Context, items []specimen.Item) error {
	var failed []string
	for _, it := range items {
		if err := s.engine.Check(s.save.Data, it.Record); err != nil {
			logging.ImportRejected(ctx, it.Record.Species, err, "source", it.Source)
			failed = append(failed, fmt.Sprintf("%s: %v", it.Source, err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d specimens rejected:\n  %s", len(failed), len(items), strings.Join(failed, "\n  "))
	}
	return nil
}

// ImportCmd applies specimens to a save.
type ImportCmd struct {
	Save     string   `arg:"" help:"Save file to update" type:"existingfile"`
	Specimen []string `arg:"" optional:"" help:"Specimen expressions, e.g. 'species=201 form=4 shiny'"`
	Batch    string   `short:"b" help:"Batch file of specimens (expressions, JSON or XML)" type:"existingfile"`
	DryRun   bool     `name:"dry-run" help:"Apply in memory and report without writing"`
	NoBackup bool     `name:"no-backup" help:"Skip storing a backup of the original save"`
}

func (c *ImportCmd) Run() error {
	s, err := openSession(c.Save)
	if err != nil {
		return err
	}
	items, err := collect(c.Specimen, c.Batch)
	if err != nil {
		return err
	}

	runID := journal.NewRunID()
	ctx := logging.WithRunID(context.Background(), runID)
	if err := s.checkAll(ctx, items); err != nil {
		return err
	}

	before := cas.Hash(s.save.Data)
	if !c.NoBackup && !c.DryRun {
		store, err := cas.NewStore(s.cfg.BackupDir())
		if err != nil {
			return err
		}
		res, err := store.StoreWithBlake3(s.save.Data)
		if err != nil {
			return fmt.Errorf("failed to back up save: %w", err)
		}
		logging.BackupStored(ctx, res.SHA256, res.Size, "blake3", res.BLAKE3)
	}

	gameName := s.save.Layout.Version.String()
	for _, it := range items {
		s.engine.Apply(s.save.Data, it.Record)
		logging.ImportApplied(ctx, gameName, it.Record.Species, it.Record.Form, it.Record.Shiny, "source", it.Source)
	}
	after := cas.Hash(s.save.Data)

	if c.DryRun {
		fmt.Fprintf(stdout, "Dry run: %d specimen(s) would be recorded in %s (%s)\n", len(items), s.save.Path, gameName)
		fmt.Fprintf(stdout, "  before: %s\n  after:  %s\n", before, after)
		return nil
	}

	start := time.Now()
	if err := s.save.Write(); err != nil {
		return err
	}
	logging.SaveWritten(ctx, s.save.Path, time.Since(start), "size", len(s.save.Data))

	j, err := journal.Open(s.cfg.JournalPath())
	if err != nil {
		return err
	}
	defer j.Close()
	for _, it := range items {
		_, err := j.Record(ctx, journal.Entry{
			RunID:        runID,
			SavePath:     s.save.Path,
			Game:         gameName,
			Species:      it.Record.Species,
			Form:         it.Record.Form,
			Shiny:        it.Record.Shiny,
			Gender:       it.Record.Gender,
			Language:     it.Record.Language,
			Native:       it.Record.NativeBorn,
			BeforeSHA256: before,
			AfterSHA256:  after,
		})
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "Recorded %d specimen(s) in %s (%s)\n", len(items), s.save.Path, gameName)
	fmt.Fprintf(stdout, "  run:    %s\n", runID)
	if !c.NoBackup {
		fmt.Fprintf(stdout, "  backup: %s (%s)\n", before, humanize.Bytes(uint64(len(s.save.Data))))
	}
	return nil
}

// CheckCmd validates specimens without touching the save.
type CheckCmd struct {
	Save     string   `arg:"" help:"Save file to check against" type:"existingfile"`
	Specimen []string `arg:"" optional:"" help:"Specimen expressions"`
	Batch    string   `short:"b" help:"Batch file of specimens" type:"existingfile"`
}

func (c *CheckCmd) Run() error {
	s, err := openSession(c.Save)
	if err != nil {
		return err
	}
	items, err := collect(c.Specimen, c.Batch)
	if err != nil {
		return err
	}
	if err := s.checkAll(context.Background(), items); err != nil {
		return err
	}
	for _, it := range items {
		fmt.Fprintf(stdout, "ok  %-16s %s\n", it.Source, specimen.Format(it.Record))
	}
	return nil
}

// InspectCmd prints the registry state of species.
type InspectCmd struct {
	Save    string `arg:"" help:"Save file to read" type:"existingfile"`
	Species []int  `arg:"" help:"National dex numbers"`
	JSON    bool   `help:"Print JSON instead of text"`
}

type inspected struct {
	Name string `json:"name,omitempty"`
	pokedex.Entry
}

func (c *InspectCmd) Run() error {
	s, err := openSession(c.Save)
	if err != nil {
		return err
	}
	speciesTable := speciesNames(s.cfg)

	var entries []inspected
	for _, sp := range c.Species {
		e, err := s.engine.Inspect(s.save.Data, sp)
		if err != nil {
			return fmt.Errorf("species %d: %w", sp, err)
		}
		in := inspected{Entry: e}
		if speciesTable != nil {
			in.Name = speciesTable.Name(sp)
		}
		entries = append(entries, in)
	}

	if c.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	for _, e := range entries {
		printEntry(stdout, s.save.Layout, e)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func printEntry(w io.Writer, l game.Layout, e inspected) {
	title := fmt.Sprintf("#%03d", e.Species)
	if e.Name != "" {
		title += " " + e.Name
	}
	fmt.Fprintln(w, title)

	fmt.Fprintf(w, "  seen:      %s (displayed: %s)\n", yesNo(e.AnySeen()), yesNo(e.AnyDisplayed()))
	fmt.Fprintf(w, "  owned:     %s\n", yesNo(e.Owned))
	if l.ForeignFlags {
		fmt.Fprintf(w, "  foreign:   %s\n", yesNo(e.Foreign))
	}
	labels := [2][2]string{{"male", "female"}, {"shiny male", "shiny female"}}
	for s := 0; s < 2; s++ {
		for f := 0; f < 2; f++ {
			if e.Seen[s][f] || e.Displayed[s][f] {
				fmt.Fprintf(w, "  %-13s seen=%s displayed=%s\n", labels[s][f]+":", yesNo(e.Seen[s][f]), yesNo(e.Displayed[s][f]))
			}
		}
	}

	langs := make([]string, len(e.Languages))
	for i, idx := range e.Languages {
		langs[i] = pokedex.LanguageName(idx)
	}
	fmt.Fprintf(w, "  languages: %s\n", strings.Join(langs, " "))

	if e.FormTracked {
		for s, label := range []string{"forms", "shiny forms"} {
			fmt.Fprintf(w, "  %-12s seen=%s displayed=%s\n", label+":", formBits(e.FormSeen[s]), formBits(e.FormDisplayed[s]))
		}
	}
	if l.SearchAssist {
		fmt.Fprintf(w, "  dexnav:    %d\n", e.SearchAssist)
	}
}

func formBits(b []bool) string {
	var sb strings.Builder
	for _, v := range b {
		if v {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}

// HistoryCmd lists journal entries.
type HistoryCmd struct {
	Limit int    `short:"n" default:"20" help:"Maximum entries to show (0 for all)"`
	RunID string `name:"run" help:"Show only the entries of one run"`
	ID    string `help:"Show a single import"`
	JSON  bool   `help:"Print JSON instead of a table"`
}

func (c *HistoryCmd) Run() error {
	cfg, err := settings()
	if err != nil {
		return err
	}
	if c.RunID != "" && c.ID != "" {
		return fmt.Errorf("--run and --id are mutually exclusive")
	}
	j, err := journal.OpenReadOnly(cfg.JournalPath())
	if err != nil {
		if errors.Is(err, pkerrors.ErrNotFound) && c.RunID == "" && c.ID == "" {
			fmt.Fprintln(stdout, "No imports recorded.")
			return nil
		}
		return err
	}
	defer j.Close()

	ctx := context.Background()
	var entries []journal.Entry
	switch {
	case c.ID != "":
		var e journal.Entry
		if e, err = j.Get(ctx, c.ID); err == nil {
			entries = []journal.Entry{e}
		}
	case c.RunID != "":
		entries, err = j.Run(ctx, c.RunID)
	default:
		entries, err = j.List(ctx, c.Limit)
	}
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No imports recorded.")
		return nil
	}

	speciesTable := speciesNames(cfg)
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tRUN\tGAME\tSPECIES\tFORM\tSHINY\tSAVE")
	for _, e := range entries {
		sp := fmt.Sprintf("#%03d", e.Species)
		if speciesTable != nil {
			sp += " " + speciesTable.Name(e.Species)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			humanize.Time(e.At), shortID(e.RunID), e.Game, sp, e.Form, yesNo(e.Shiny), e.SavePath)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// RestoreCmd writes a backed-up image over a save.
type RestoreCmd struct {
	Save  string `arg:"" help:"Save file to restore" type:"path"`
	RunID string `name:"run" help:"Restore the image from before this run"`
	Hash  string `help:"Restore the backup with this SHA-256 or BLAKE3 hash"`
}

func (c *RestoreCmd) Run() error {
	cfg, err := settings()
	if err != nil {
		return err
	}
	if c.RunID != "" && c.Hash != "" {
		return fmt.Errorf("--run and --hash are mutually exclusive")
	}
	path, err := filepath.Abs(c.Save)
	if err != nil {
		return err
	}

	hash := c.Hash
	if hash == "" {
		hash, err = restoreTarget(cfg, path, c.RunID)
		if err != nil {
			return err
		}
	}

	store, err := cas.NewStore(cfg.BackupDir())
	if err != nil {
		return err
	}
	data, err := store.RetrieveAny(hash)
	if err != nil {
		return fmt.Errorf("backup %s: %w", hash, err)
	}

	// Keep the image being replaced so the restore can itself be undone.
	if current, err := os.ReadFile(path); err == nil {
		if _, err := store.StoreWithBlake3(current); err != nil {
			return fmt.Errorf("failed to back up current save: %w", err)
		}
	}

	start := time.Now()
	if err := savefile.Write(path, data); err != nil {
		return err
	}
	logging.SaveWritten(context.Background(), path, time.Since(start), "restored_from", hash)
	fmt.Fprintf(stdout, "Restored %s from %s (%s)\n", path, hash, humanize.Bytes(uint64(len(data))))
	return nil
}

// restoreTarget picks the pre-import hash of a run, or of the latest run
// recorded against path.
func restoreTarget(cfg config.Config, path, runID string) (string, error) {
	j, err := journal.OpenReadOnly(cfg.JournalPath())
	if err != nil {
		return "", err
	}
	defer j.Close()

	ctx := context.Background()
	if runID != "" {
		entries, err := j.Run(ctx, runID)
		if err != nil {
			return "", err
		}
		return entries[0].BeforeSHA256, nil
	}
	e, err := j.Latest(ctx, path)
	if err != nil {
		return "", err
	}
	return e.BeforeSHA256, nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := sqlite.GetInfo()
	fmt.Fprintf(stdout, "pkdex version %s\n", version)
	fmt.Fprintf(stdout, "sqlite driver: %s (%s)\n", info.Package, info.DriverType)
	return nil
}

// NamesCmd prints entries of a localized name table.
type NamesCmd struct {
	Kind  string `arg:"" enum:"species,moves,items,abilities,natures,hidden-power" help:"Table to read (species, moves, items, abilities, natures, hidden-power)"`
	Index []int  `arg:"" optional:"" help:"Entries to print; every entry when omitted"`
}

func (c *NamesCmd) Run() error {
	cfg, err := settings()
	if err != nil {
		return err
	}

	lookup := names.HiddenPowerType
	count := 16
	if c.Kind != "hidden-power" {
		if cfg.NamesDir == "" {
			return fmt.Errorf("no names directory configured (set --names-dir or PKDEX_NAMES_DIR)")
		}
		set, err := names.LoadSet(cfg.NamesDir, cfg.Lang)
		if err != nil {
			return err
		}
		k, _ := names.KindOf(c.Kind)
		lookup = func(i int) string { return set.Name(k, i) }
		count = set.Len(k)
	}

	indices := c.Index
	if len(indices) == 0 {
		for i := 0; i < count; i++ {
			indices = append(indices, i)
		}
	}
	for _, i := range indices {
		fmt.Fprintf(stdout, "%4d  %s\n", i, lookup(i))
	}
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("pkdex"),
		kong.Description("Pokédex registry updater for Generation 6 saves"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	if _, err := loadConfig(); err != nil {
		config.Exitf("pkdex: %v", err)
	}
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}

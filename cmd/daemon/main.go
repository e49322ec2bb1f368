// The daemon exposes the typing-booster engine on the session bus: a
// frontend delivers key events and focus changes, the engine answers
// with commit/preedit/candidate signals.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/godbus/dbus/v5"
	flags "github.com/jessevdk/go-flags"

	"github.com/username/typing-booster/internal/candidate"
	"github.com/username/typing-booster/internal/compose"
	"github.com/username/typing-booster/internal/config"
	"github.com/username/typing-booster/internal/dictionary"
	"github.com/username/typing-booster/internal/emoji"
	"github.com/username/typing-booster/internal/engine"
	"github.com/username/typing-booster/internal/keymap"
	"github.com/username/typing-booster/internal/userdb"
)

const (
	serviceName = "org.freedesktop.TypingBooster"
	objectPath  = "/org/freedesktop/TypingBooster/Engine"
	ifaceName   = serviceName + ".Engine"
)

type options struct {
	Config  string `long:"config" description:"configuration file" default:""`
	DataDir string `long:"data-dir" description:"per-user data directory" default:""`
	Compose string `long:"compose" description:"system compose file" default:"/usr/share/X11/locale/en_US.UTF-8/Compose"`
	Debug   bool   `long:"debug" description:"force debug logging"`
	Replace bool   `long:"replace" description:"replace a running instance"`
	Help    bool   `long:"help" description:"Show this help"`
}

// initSlog configures the default logger from LOG_LEVEL, the config's
// debuglevel, and --debug; with debug on, a log file in the data dir
// captures the stream.
func initSlog(dataDir string, debugLevel int, force bool) {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if debugLevel > 0 || force {
		level = slog.LevelDebug
	}

	out := os.Stderr
	if debugLevel > 0 {
		path := filepath.Join(dataDir, "debug.log")
		if f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600); err == nil {
			out = f
		}
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// dbusHost implements engine.Host by emitting signals on the session
// bus; the frontend applies them to the focused document.
type dbusHost struct {
	conn *dbus.Conn
}

func (h *dbusHost) emit(member string, values ...interface{}) error {
	return h.conn.Emit(objectPath, ifaceName+"."+member, values...)
}

func (h *dbusHost) CommitText(text string) error {
	return h.emit("CommitText", text)
}

func (h *dbusHost) UpdatePreedit(text string, cursor int, visible bool, styles []engine.StyleRun) error {
	runs := make([][3]int32, len(styles))
	for i, s := range styles {
		runs[i] = [3]int32{int32(s.Start), int32(s.End), int32(s.Style)}
	}
	return h.emit("UpdatePreedit", text, int32(cursor), visible, runs)
}

func (h *dbusHost) UpdateCandidates(cands []candidate.Candidate, cursor int, visible bool) error {
	texts := make([]string, len(cands))
	annotations := make([]string, len(cands))
	sources := make([]string, len(cands))
	for i, c := range cands {
		texts[i] = c.Text
		annotations[i] = c.Annotation
		sources[i] = string(c.Source)
	}
	return h.emit("UpdateCandidates", texts, annotations, sources, int32(cursor), visible)
}

func (h *dbusHost) UpdateAuxiliary(text string, visible bool) error {
	return h.emit("UpdateAuxiliary", text, visible)
}

func (h *dbusHost) ForwardKeyEvent(ev keymap.KeyEvent) error {
	return h.emit("ForwardKeyEvent", ev.Keyval, ev.Code, ev.Modifiers)
}

func (h *dbusHost) DeleteSurroundingText(offset, nchars int) error {
	return h.emit("DeleteSurroundingText", int32(offset), uint32(nchars))
}

func (h *dbusHost) RegisterProperties(props []engine.Property) error {
	keys := make([]string, len(props))
	labels := make([]string, len(props))
	states := make([]bool, len(props))
	for i, p := range props {
		keys[i] = p.Key
		labels[i] = p.Label
		states[i] = p.State
	}
	return h.emit("RegisterProperties", keys, labels, states)
}

func (h *dbusHost) UpdateProperty(prop engine.Property) error {
	return h.emit("UpdateProperty", prop.Key, prop.Label, prop.State)
}

// service is the exported D-Bus object receiving frontend calls.
type service struct {
	engine   *engine.Engine
	host     *dbusHost
	cfgStore *config.Store
	cfgPath  string
	logger   *slog.Logger

	// rebuildCompose reparses the system file and user overlay into a
	// fresh trie and swaps it in atomically.
	rebuildCompose func()
}

// ProcessKeyEvent handles one key event. Modifier bit 30 marks a
// release, matching the frontend's encoding.
func (s *service) ProcessKeyEvent(keyval, keycode, modifiers uint32) (bool, *dbus.Error) {
	ev := keymap.KeyEvent{
		Keyval:    keyval,
		Code:      keycode,
		Modifiers: modifiers &^ keymap.ModRelease,
		IsRelease: modifiers&keymap.ModRelease != 0,
	}
	return s.engine.ProcessKeyEvent(ev), nil
}

func (s *service) FocusIn(clientID string) *dbus.Error {
	s.engine.FocusIn(clientID)
	return nil
}

func (s *service) FocusOut() *dbus.Error {
	s.engine.FocusOut()
	return nil
}

func (s *service) SetSurroundingText(text string, cursor, anchor uint32) *dbus.Error {
	s.engine.SetSurroundingText(text, int(cursor), int(anchor))
	return nil
}

func (s *service) Enable() *dbus.Error {
	s.engine.Enable()
	return nil
}

func (s *service) Disable() *dbus.Error {
	s.engine.Disable()
	return nil
}

func (s *service) PropertyActivate(name string, state bool) *dbus.Error {
	s.engine.PropertyActivate(name, state)
	return nil
}

func (s *service) SetAvailableKeysyms(keysyms []uint32) *dbus.Error {
	available := make(map[uint32]bool, len(keysyms))
	for _, k := range keysyms {
		available[k] = true
	}
	s.engine.SetAvailableKeysyms(available)
	return nil
}

// Reload re-reads the configuration file and publishes the new
// snapshot; the event loop picks it up between events.
func (s *service) Reload() *dbus.Error {
	cfg, err := config.Load(s.cfgPath, s.logger)
	if err != nil {
		s.logger.Error("config reload failed", "error", err)
		return dbus.MakeFailedError(err)
	}
	s.cfgStore.Publish(cfg)
	if s.rebuildCompose != nil {
		s.rebuildCompose()
	}
	s.engine.Reload()
	s.host.emitAppearance(cfg)
	return nil
}

// emitAppearance forwards the candidate color/label/font keys to the
// frontend untouched; the core does not interpret them.
func (h *dbusHost) emitAppearance(cfg *config.Config) {
	if len(cfg.Appearance) == 0 {
		return
	}
	if err := h.emit("AppearanceChanged", cfg.Appearance); err != nil {
		slog.Warn("appearance forward failed", "error", err)
	}
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "typing-booster")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "typing-booster-data"
	}
	return filepath.Join(home, ".local", "share", "typing-booster")
}

func run(opts options) error {
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = defaultDataDir()
	}
	cfgPath := opts.Config
	if cfgPath == "" {
		cfgPath = filepath.Join(dataDir, "config.yaml")
	}

	logger := slog.Default()
	cfg, err := config.Load(cfgPath, logger)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	initSlog(dataDir, cfg.DebugLevel, opts.Debug)
	logger = slog.Default()
	cfgStore := config.NewStore(cfg)

	dicts := dictionary.NewSet(filepath.Join(dataDir, "dictionaries"), cfg.Dictionaries, logger)

	db, err := userdb.Open(filepath.Join(dataDir, "user.db"), userdb.Options{
		Validator: dicts.Spellcheck,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("open user database: %w", err)
	}
	defer db.Close()
	db.SetRecordMode(userdb.RecordMode(cfg.RecordMode))
	db.SetOffTheRecord(cfg.OffTheRecord)

	emojiIndex, err := emoji.NewIndex(emoji.Options{
		Languages:      cfg.Dictionaries,
		Romanize:       true,
		UnicodeDataAll: cfg.UnicodeDataAll,
	})
	if err != nil {
		return fmt.Errorf("build emoji index: %w", err)
	}

	composeTable := compose.NewTable()
	home, _ := os.UserHomeDir()
	parseOpts := compose.ParseOptions{
		Locale:    "en_US.UTF-8",
		SystemDir: filepath.Dir(filepath.Dir(opts.Compose)),
		Home:      home,
		Logger:    logger,
	}
	rebuildCompose := func() {
		composeTable.Swap(compose.BuildTable(opts.Compose, filepath.Join(home, ".XCompose"), parseOpts))
	}
	rebuildCompose()

	// Connect and claim the service name before wiring the engine, so
	// a second instance fails fast.
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("connect to session bus: %w", err)
	}
	defer conn.Close()

	nameFlags := dbus.NameFlagDoNotQueue
	if opts.Replace {
		nameFlags |= dbus.NameFlagReplaceExisting
	}
	reply, err := conn.RequestName(serviceName, nameFlags)
	if err != nil {
		return fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("name %s already taken - another instance may be running", serviceName)
	}

	host := &dbusHost{conn: conn}
	producer := candidate.NewEngine(db, dicts, emojiIndex, composeTable, logger)
	eng := engine.New(host, cfgStore, db, dicts, producer, composeTable, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Run(ctx)

	svc := &service{
		engine:         eng,
		host:           host,
		cfgStore:       cfgStore,
		cfgPath:        cfgPath,
		logger:         logger,
		rebuildCompose: rebuildCompose,
	}
	if err := conn.Export(svc, dbus.ObjectPath(objectPath), ifaceName); err != nil {
		return fmt.Errorf("export engine object: %w", err)
	}
	host.emitAppearance(cfg)

	logger.Info("typing-booster daemon running",
		"service", serviceName,
		"object", objectPath,
		"inputmethods", strings.Join(cfg.InputMethods, ","),
		"dictionaries", strings.Join(cfg.Dictionaries, ","))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			logger.Info("reloading configuration on SIGHUP")
			svc.Reload()
			continue
		}
		logger.Info("shutting down", "signal", sig)
		return nil
	}
	return nil
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[option...]"
	if _, err := parser.Parse(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

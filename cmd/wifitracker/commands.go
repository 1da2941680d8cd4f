package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/xtxerr/wifitracker/internal/errors"
	"github.com/xtxerr/wifitracker/internal/storage"
	"github.com/xtxerr/wifitracker/internal/storage/codec"
	"github.com/xtxerr/wifitracker/internal/storage/types"
	"github.com/xtxerr/wifitracker/internal/validation"
)

// errUsage reports a malformed command line; the message was already printed.
var errUsage = errors.New("usage")

type env struct {
	svc   *storage.Service
	out   *output
	stdin io.Reader
}

type command struct {
	name string
	args string
	help string
	run  func(ctx context.Context, e *env, args []string) error
}

var commands = []command{
	{"add", "[-at ts] [-signal dBm] <mac> [ssid]", "append one probe request", cmdAdd},
	{"import", "", "append JSON log lines read from stdin", cmdImport},
	{"devices", "[-at ts] [-vendors]", "print all devices seen", cmdDevices},
	{"device", "[-at ts] [-vendors] <mac>", "print one device", cmdDevice},
	{"stations", "[-at ts]", "print all networks probed for", cmdStations},
	{"station", "[-at ts] <ssid>", "print one network", cmdStation},
	{"aliases", "", "print the alias file", cmdAliases},
	{"alias", "[-force] <mac> <alias>", "name a device", cmdAlias},
	{"export", "[-at ts] [-dir dir]", "write a Parquet snapshot", cmdExport},
	{"popular", "[-limit n]", "rank SSIDs in the last export", cmdPopular},
	{"activity", "<mac>", "probes per hour in the last export", cmdActivity},
	{"sql", "<query>", "run SQL against the query engine", cmdSQL},
	{"requirements", "", "estimate resources for the current log", cmdRequirements},
}

func run(ctx context.Context, e *env, args []string) error {
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(ctx, e, args[1:])
		}
	}
	fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
	usage()
	return errUsage
}

// newFlags returns a flag set that reports errors without exiting.
func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string, nargs int) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != nargs {
		fmt.Fprintf(os.Stderr, "%s: expected %d argument(s), got %d\n", fs.Name(), nargs, fs.NArg())
		return errUsage
	}
	return nil
}

// parseCutoff accepts the log timestamp layout or RFC 3339. An empty
// string is the zero time, which snapshots treat as now.
func parseCutoff(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := types.ParseTimestamp(s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}
	return t, nil
}

// =============================================================================
// Writes
// =============================================================================

func cmdAdd(_ context.Context, e *env, args []string) error {
	fs := newFlags("add")
	at := fs.String("at", "", "capture time (default now)")
	signal := fs.String("signal", "", "signal strength in dBm")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fmt.Fprintln(os.Stderr, "add: expected <mac> [ssid]")
		return errUsage
	}

	mac := fs.Arg(0)
	if err := validation.ValidateMAC(mac); err != nil {
		return err
	}

	captured := time.Now()
	if *at != "" {
		t, err := parseCutoff(*at)
		if err != nil {
			return err
		}
		captured = t
	}

	var dbm *int
	if *signal != "" {
		v, err := strconv.Atoi(*signal)
		if err != nil {
			return fmt.Errorf("invalid signal %q", *signal)
		}
		dbm = &v
	}

	r := types.NewProbeRequest(mac, captured, fs.Arg(1), dbm)
	if err := e.svc.AddRequest(r); err != nil {
		return err
	}
	return e.out.json(r)
}

func cmdImport(_ context.Context, e *env, args []string) error {
	if err := parseFlags(newFlags("import"), args, 0); err != nil {
		return err
	}

	reqs, err := readRequests(e.stdin)
	if err != nil {
		return err
	}
	if err := e.svc.AddRequests(reqs); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "imported %d requests\n", len(reqs))
	return nil
}

// readRequests decodes one request per non-blank line. Nothing is returned
// unless every line decodes; a malformed capture time only drops the time.
func readRequests(r io.Reader) ([]types.ProbeRequest, error) {
	var reqs []types.ProbeRequest

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		req, err := codec.Decode([]byte(text))
		if apperrors.IsInvalidTimestamp(err) {
			fmt.Fprintf(os.Stderr, "line %d: %v, keeping request without capture time\n", line, err)
		} else if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		reqs = append(reqs, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return reqs, nil
}

// =============================================================================
// Snapshots
// =============================================================================

func cmdDevices(ctx context.Context, e *env, args []string) error {
	fs := newFlags("devices")
	at := fs.String("at", "", "snapshot time (default now)")
	vendors := fs.Bool("vendors", false, "look up device vendors")
	if err := parseFlags(fs, args, 0); err != nil {
		return err
	}

	cutoff, err := parseCutoff(*at)
	if err != nil {
		return err
	}

	devices, err := e.svc.Devices(cutoff)
	if err != nil {
		return err
	}
	if *vendors {
		e.svc.ResolveVendors(ctx, devices)
	}
	return e.out.json(types.SortedDevices(devices))
}

func cmdDevice(ctx context.Context, e *env, args []string) error {
	fs := newFlags("device")
	at := fs.String("at", "", "snapshot time (default now)")
	vendors := fs.Bool("vendors", false, "look up the device vendor")
	if err := parseFlags(fs, args, 1); err != nil {
		return err
	}

	cutoff, err := parseCutoff(*at)
	if err != nil {
		return err
	}

	d, err := e.svc.Device(fs.Arg(0), cutoff)
	if err != nil {
		return err
	}
	if *vendors {
		e.svc.ResolveVendors(ctx, map[string]*types.Device{d.DeviceMAC: d})
	}
	return e.out.json(d)
}

func cmdStations(_ context.Context, e *env, args []string) error {
	fs := newFlags("stations")
	at := fs.String("at", "", "snapshot time (default now)")
	if err := parseFlags(fs, args, 0); err != nil {
		return err
	}

	cutoff, err := parseCutoff(*at)
	if err != nil {
		return err
	}

	stations, err := e.svc.Stations(cutoff)
	if err != nil {
		return err
	}
	return e.out.json(types.SortedStations(stations))
}

func cmdStation(_ context.Context, e *env, args []string) error {
	fs := newFlags("station")
	at := fs.String("at", "", "snapshot time (default now)")
	if err := parseFlags(fs, args, 1); err != nil {
		return err
	}

	cutoff, err := parseCutoff(*at)
	if err != nil {
		return err
	}

	s, err := e.svc.Station(fs.Arg(0), cutoff)
	if err != nil {
		return err
	}
	return e.out.json(s)
}

// =============================================================================
// Aliases
// =============================================================================

func cmdAliases(_ context.Context, e *env, args []string) error {
	if err := parseFlags(newFlags("aliases"), args, 0); err != nil {
		return err
	}

	aliases, err := e.svc.Aliases()
	if err != nil {
		return err
	}
	return e.out.json(aliases)
}

func cmdAlias(_ context.Context, e *env, args []string) error {
	fs := newFlags("alias")
	force := fs.Bool("force", false, "replace an existing alias")
	if err := parseFlags(fs, args, 2); err != nil {
		return err
	}
	return e.svc.SetAlias(fs.Arg(0), fs.Arg(1), *force)
}

// =============================================================================
// Export and analytics
// =============================================================================

func cmdExport(ctx context.Context, e *env, args []string) error {
	fs := newFlags("export")
	at := fs.String("at", "", "snapshot time (default now)")
	dir := fs.String("dir", "", "output directory (default export.dir)")
	if err := parseFlags(fs, args, 0); err != nil {
		return err
	}

	cutoff, err := parseCutoff(*at)
	if err != nil {
		return err
	}

	result, err := e.svc.Export(ctx, *dir, cutoff)
	if err != nil {
		return err
	}

	e.out.table([]string{"dir", "probes", "devices", "stations", "duration"}, [][]string{{
		result.Dir,
		strconv.FormatInt(result.Probes, 10),
		strconv.FormatInt(result.Devices, 10),
		strconv.FormatInt(result.Stations, 10),
		result.Duration.Round(time.Millisecond).String(),
	}})
	return nil
}

func cmdPopular(ctx context.Context, e *env, args []string) error {
	fs := newFlags("popular")
	limit := fs.Int("limit", 20, "number of SSIDs, 0 for all")
	if err := parseFlags(fs, args, 0); err != nil {
		return err
	}

	q, err := e.svc.Query()
	if err != nil {
		return err
	}
	counts, err := q.SSIDPopularity(ctx, *limit)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{
			types.EscapeSSID(c.SSID),
			strconv.FormatInt(c.Probes, 10),
			strconv.FormatInt(c.Devices, 10),
		})
	}
	e.out.table([]string{"ssid", "probes", "devices"}, rows)
	return nil
}

func cmdActivity(ctx context.Context, e *env, args []string) error {
	fs := newFlags("activity")
	if err := parseFlags(fs, args, 1); err != nil {
		return err
	}

	q, err := e.svc.Query()
	if err != nil {
		return err
	}
	hours, err := q.DeviceActivity(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(hours))
	for _, h := range hours {
		rows = append(rows, []string{
			types.FormatTimestamp(h.Hour),
			strconv.FormatInt(h.Probes, 10),
		})
	}
	e.out.table([]string{"hour", "probes"}, rows)
	return nil
}

func cmdSQL(ctx context.Context, e *env, args []string) error {
	fs := newFlags("sql")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "sql: expected <query>")
		return errUsage
	}

	q, err := e.svc.Query()
	if err != nil {
		return err
	}
	rows, err := q.ExecuteSQL(ctx, strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}
	return e.out.json(rows)
}

func cmdRequirements(_ context.Context, e *env, args []string) error {
	if err := parseFlags(newFlags("requirements"), args, 0); err != nil {
		return err
	}

	cfg := e.svc.Config()
	info, err := os.Stat(cfg.LogPath())
	if err != nil {
		return err
	}

	r := cfg.CalculateRequirements(info.Size())
	fmt.Fprint(e.out.w, r.FormatRequirements())
	return nil
}

// Package source downloads orbital element sets and catalogue metadata
// from CelesTrak, caching them on disk so repeat runs and flaky
// networks do not hammer the upstream service.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/signalsfoundry/skymatrix/catalog"
	"github.com/signalsfoundry/skymatrix/internal/logging"
	"github.com/signalsfoundry/skymatrix/model"
)

// Upstream defaults. Element sets rarely update more than daily, so a
// week of cache keeps startup fast without going meaningfully stale.
const (
	DefaultBaseURL   = "https://celestrak.org/NORAD/elements/gp.php"
	DefaultSatcatURL = "https://celestrak.org/pub/satcat.csv"
	DefaultCacheTTL  = 7 * 24 * time.Hour
)

// Categories attached as a tag to every record loaded from a group in
// that category.
const (
	CategoryWeatherEarth    = "weather & earth resources"
	CategoryCommunications  = "communications"
	CategoryNavigation      = "navigation"
	CategoryScientific      = "scientific"
	CategoryMiscellaneous   = "miscellaneous"
	CategorySpecialInterest = "special-interest"
)

var groupCategories = map[string]string{
	"weather":  CategoryWeatherEarth,
	"noaa":     CategoryWeatherEarth,
	"goes":     CategoryWeatherEarth,
	"resource": CategoryWeatherEarth,
	"sarsat":   CategoryWeatherEarth,
	"dmc":      CategoryWeatherEarth,
	"tdrss":    CategoryWeatherEarth,
	"argos":    CategoryWeatherEarth,
	"planet":   CategoryWeatherEarth,
	"spire":    CategoryWeatherEarth,

	"geo":          CategoryCommunications,
	"gpz":          CategoryCommunications,
	"gpz-plus":     CategoryCommunications,
	"intelsat":     CategoryCommunications,
	"ses":          CategoryCommunications,
	"iridium":      CategoryCommunications,
	"iridium-next": CategoryCommunications,
	"starlink":     CategoryCommunications,
	"oneweb":       CategoryCommunications,
	"orbcomm":      CategoryCommunications,
	"globalstar":   CategoryCommunications,
	"swarm":        CategoryCommunications,
	"amateur":      CategoryCommunications,
	"x-comm":       CategoryCommunications,
	"other-comm":   CategoryCommunications,
	"satnogs":      CategoryCommunications,
	"gorizont":     CategoryCommunications,
	"raduga":       CategoryCommunications,
	"molniya":      CategoryCommunications,

	"gnss":    CategoryNavigation,
	"gps-ops": CategoryNavigation,
	"glo-ops": CategoryNavigation,
	"galileo": CategoryNavigation,
	"beidou":  CategoryNavigation,
	"sbas":    CategoryNavigation,
	"nnss":    CategoryNavigation,
	"musson":  CategoryNavigation,

	"science":     CategoryScientific,
	"geodetic":    CategoryScientific,
	"engineering": CategoryScientific,
	"education":   CategoryScientific,

	"military": CategoryMiscellaneous,
	"radar":    CategoryMiscellaneous,
	"cubesat":  CategoryMiscellaneous,
	"other":    CategoryMiscellaneous,

	"stations":           CategorySpecialInterest,
	"visual":             CategorySpecialInterest,
	"active":             CategorySpecialInterest,
	"analyst":            CategorySpecialInterest,
	"cosmos-1408-debris": CategorySpecialInterest,
	"fengyun-1c-debris":  CategorySpecialInterest,
	"iridium-33-debris":  CategorySpecialInterest,
	"cosmos-2251-debris": CategorySpecialInterest,
}

// Groups returns every known CelesTrak group name, sorted.
func Groups() []string {
	names := make([]string, 0, len(groupCategories))
	for name := range groupCategories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CategoryForGroup returns the category a group belongs to.
func CategoryForGroup(group string) (string, bool) {
	category, ok := groupCategories[strings.ToLower(group)]
	return category, ok
}

// Fetch outcomes reported to a FetchRecorder.
const (
	FetchFetched = "fetched" // downloaded from upstream
	FetchCached  = "cached"  // served from a fresh cache file
	FetchStale   = "stale"   // upstream failed, expired cache used
	FetchError   = "error"   // upstream failed with no cache to fall back on
)

// FetchRecorder receives observations about catalogue loads. The
// observability package provides a Prometheus-backed implementation.
type FetchRecorder interface {
	ObserveFetch(outcome string, d time.Duration)
	SetRecordsLoaded(count int)
	SetCacheAge(age time.Duration)
}

// Client fetches element set groups and SATCAT metadata, keeping a
// per-file disk cache under its data directory.
type Client struct {
	baseURL   string
	satcatURL string
	dataDir   string
	ttl       time.Duration
	http      *http.Client
	log       logging.Logger
	recorder  FetchRecorder
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the GP query endpoint.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithSatcatURL overrides the satellite catalogue URL.
func WithSatcatURL(u string) ClientOption {
	return func(c *Client) { c.satcatURL = u }
}

// WithTTL overrides how old a cache file may be before it is refreshed.
func WithTTL(ttl time.Duration) ClientOption {
	return func(c *Client) { c.ttl = ttl }
}

// WithHTTPClient substitutes the HTTP client used for downloads.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(log logging.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// WithFetchRecorder wires load observations to a metrics collector.
func WithFetchRecorder(rec FetchRecorder) ClientOption {
	return func(c *Client) { c.recorder = rec }
}

// NewClient builds a client caching under dataDir.
func NewClient(dataDir string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		satcatURL: DefaultSatcatURL,
		dataDir:   dataDir,
		ttl:       DefaultCacheTTL,
		http:      &http.Client{Timeout: 30 * time.Second},
		log:       logging.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadGroup fetches one CelesTrak group and returns it as a catalog.
// Every record is tagged with the group name and the group's category.
// Element sets that fail to parse are skipped with a warning so one
// corrupt entry cannot take down the rest of the group.
func (c *Client) LoadGroup(ctx context.Context, group string) (*catalog.Catalog, error) {
	group = strings.ToLower(group)
	category, ok := CategoryForGroup(group)
	if !ok {
		return nil, fmt.Errorf("unknown group %q", group)
	}
	u, err := c.groupURL(group)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(c.dataDir, "NORAD", group+".tle")
	if err := c.ensureFresh(ctx, u, path); err != nil {
		return nil, fmt.Errorf("group %s: %w", group, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sets, err := ParseTLE(f)
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", group, err)
	}

	records := make([]model.OrbitalRecord, 0, len(sets))
	for _, set := range sets {
		rec, err := NewRecord(set, group, category)
		if err != nil {
			c.log.Warn(ctx, "skipping unparsable element set",
				logging.String("group", group),
				logging.String("name", set.Name),
				logging.String("error", err.Error()),
			)
			continue
		}
		records = append(records, rec)
	}
	c.log.Info(ctx, "group loaded",
		logging.String("group", group),
		logging.Int("records", len(records)),
	)
	return catalog.New(records...), nil
}

// LoadGroups loads several groups and merges them into one catalog,
// deduplicating objects that appear in more than one group.
func (c *Client) LoadGroups(ctx context.Context, groups ...string) (*catalog.Catalog, error) {
	merged := catalog.New()
	for _, group := range groups {
		cat, err := c.LoadGroup(ctx, group)
		if err != nil {
			return nil, err
		}
		merged = merged.Merge(cat)
	}
	if c.recorder != nil {
		c.recorder.SetRecordsLoaded(merged.Len())
	}
	return merged, nil
}

// LoadSATCAT fetches the satellite catalogue and returns its metadata
// keyed by object name, ready for catalog enrichment.
func (c *Client) LoadSATCAT(ctx context.Context) (map[string]catalog.Metadata, error) {
	path := filepath.Join(c.dataDir, "SATCAT", "satcat.csv")
	if err := c.ensureFresh(ctx, c.satcatURL, path); err != nil {
		return nil, fmt.Errorf("satcat: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	meta, err := ParseSATCAT(f)
	if err != nil {
		return nil, fmt.Errorf("satcat: %w", err)
	}
	c.log.Info(ctx, "satcat loaded", logging.Int("objects", len(meta)))
	return meta, nil
}

func (c *Client) groupURL(group string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("base URL: %w", err)
	}
	q := u.Query()
	q.Set("GROUP", group)
	q.Set("FORMAT", "tle")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ensureFresh guarantees path holds a usable copy of rawURL. A fresh
// cache file is used as-is, anything else triggers a download, and when
// the download fails an expired cache file is still preferred over
// failing the load.
func (c *Client) ensureFresh(ctx context.Context, rawURL, path string) error {
	if age, ok := c.cacheAge(path); ok && age < c.ttl {
		c.observeFetch(FetchCached, 0, age)
		return nil
	}

	start := time.Now()
	err := c.download(ctx, rawURL, path)
	if err == nil {
		c.observeFetch(FetchFetched, time.Since(start), 0)
		return nil
	}

	if age, ok := c.cacheAge(path); ok {
		c.log.Warn(ctx, "download failed, serving stale cache",
			logging.String("url", rawURL),
			logging.String("error", err.Error()),
			logging.Float64("age_days", age.Hours()/24),
		)
		c.observeFetch(FetchStale, 0, age)
		return nil
	}
	c.observeFetch(FetchError, 0, 0)
	return err
}

func (c *Client) observeFetch(outcome string, d, age time.Duration) {
	if c.recorder == nil {
		return
	}
	c.recorder.ObserveFetch(outcome, d)
	if outcome != FetchError {
		c.recorder.SetCacheAge(age)
	}
}

func (c *Client) cacheAge(path string) (time.Duration, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return time.Since(info.ModTime()), true
}

func (c *Client) download(ctx context.Context, rawURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %s", rawURL, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

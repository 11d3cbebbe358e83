// Package sync imports sale deployments published in a remote
// deployments.json manifest into the contract registry.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Mohsinsiddi/nftsale/internal/config"
	"github.com/Mohsinsiddi/nftsale/internal/contract"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	fetchTimeout = 15 * time.Second
	maxFetches   = 4
)

// Manifest is the structure of a deployments.json manifest:
//
//	{"contracts": {"<name>": {"<network>": {"address": "0x…", "abi_url": "…"}}}}
type Manifest struct {
	Contracts map[string]map[string]ManifestEntry `json:"contracts"`
}

// ManifestEntry is one deployment of a sale.
type ManifestEntry struct {
	Address  string `json:"address"`
	ABIUrl   string `json:"abi_url,omitempty"`
	DeployTx string `json:"deploy_tx,omitempty"`
	Block    uint64 `json:"block,omitempty"`
}

// Result summarises one run.
type Result struct {
	Imported int
	Skipped  []string // "name@network: reason"
}

// Syncer fetches the manifest from the configured source and updates the
// contract registry.
type Syncer struct {
	cfg    *config.Config
	reg    *contract.Registry
	client *http.Client
	logger *zap.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger for skipped entries.
func WithLogger(l *zap.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Syncer) { s.client = c }
}

// New creates a new Syncer.
func New(cfg *config.Config, reg *contract.Registry, opts ...Option) *Syncer {
	s := &Syncer{
		cfg:    cfg,
		reg:    reg,
		client: &http.Client{Timeout: fetchTimeout},
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetSource sets the remote manifest URL.
func (s *Syncer) SetSource(url string) error {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("manifest source must be an http(s) URL, got %q", url)
	}
	sc, err := s.cfg.LoadSync()
	if err != nil {
		return err
	}
	sc.Source = url
	return s.cfg.SaveSync(sc)
}

// Run fetches the manifest and registers every deployment whose ABI is an
// NftToken sale. Entries without abi_url use the built-in ABI. A bad entry
// is skipped; the rest are still imported.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	sc, err := s.cfg.LoadSync()
	if err != nil {
		return nil, fmt.Errorf("loading sync config: %w", err)
	}
	if sc.Source == "" {
		return nil, fmt.Errorf("no sync source configured — run: nftsale contract sync --source <url>")
	}
	if err := s.reg.Load(); err != nil {
		return nil, err
	}

	manifest, err := s.fetchManifest(ctx, sc.Source)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}

	type job struct {
		name, network string
		entry         ManifestEntry
		abi           []contract.ABIEntry
		err           error
	}
	var jobs []*job
	for name, networks := range manifest.Contracts {
		for network, e := range networks {
			jobs = append(jobs, &job{name: name, network: network, entry: e})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFetches)
	for _, j := range jobs {
		g.Go(func() error {
			j.abi, j.err = s.resolveABI(gctx, j.entry)
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	res := &Result{}
	for _, j := range jobs {
		if j.err == nil && !common.IsHexAddress(j.entry.Address) {
			j.err = fmt.Errorf("invalid address %q", j.entry.Address)
		}
		if j.err != nil {
			s.logger.Warn("skipping deployment",
				zap.String("name", j.name),
				zap.String("network", j.network),
				zap.Error(j.err))
			res.Skipped = append(res.Skipped, fmt.Sprintf("%s@%s: %v", j.name, j.network, j.err))
			continue
		}
		s.reg.Add(&contract.Entry{
			Name:     j.name,
			Network:  strings.ToLower(j.network),
			Address:  common.HexToAddress(j.entry.Address).Hex(),
			DeployTx: j.entry.DeployTx,
			Block:    j.entry.Block,
			ABI:      j.abi,
		})
		res.Imported++
	}

	if err := s.reg.Save(); err != nil {
		return nil, fmt.Errorf("saving contracts: %w", err)
	}
	sc.LastSynced = time.Now().UTC().Format(time.RFC3339)
	if err := s.cfg.SaveSync(sc); err != nil {
		return nil, err
	}
	return res, nil
}

// Watch runs Syncer.Run on a ticker until ctx is cancelled. Only the first
// run's error is returned; later failures are logged.
func (s *Syncer) Watch(ctx context.Context, interval time.Duration, onRun func(*Result)) error {
	res, err := s.Run(ctx)
	if err != nil {
		return err
	}
	onRun(res)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			res, err := s.Run(ctx)
			if err != nil {
				s.logger.Warn("sync failed", zap.Error(err))
				continue
			}
			onRun(res)
		}
	}
}

func (s *Syncer) resolveABI(ctx context.Context, e ManifestEntry) ([]contract.ABIEntry, error) {
	if e.ABIUrl == "" {
		return nil, nil
	}
	body, err := s.get(ctx, e.ABIUrl)
	if err != nil {
		return nil, fmt.Errorf("fetching ABI: %w", err)
	}
	entries, err := contract.ABIFromJSON(body, e.ABIUrl)
	if err != nil {
		return nil, err
	}
	if err := contract.RequireNftToken(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Syncer) fetchManifest(ctx context.Context, url string) (*Manifest, error) {
	body, err := s.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

func (s *Syncer) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Package secrets resolves secret:// configuration values through Google
// Secret Manager, with a local file for development.
package secrets

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultLocalFile holds name=value lines used when Secret Manager cannot answer.
const DefaultLocalFile = ".secrets.local"

type accessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Fetcher resolves references once per process and caches the values.
type Fetcher struct {
	client    accessor
	ownClient bool
	project   string
	localPath string
	logger    *zap.Logger
	resolved  metric.Int64Counter

	localOnce sync.Once
	local     map[string]string

	mu    sync.Mutex
	cache map[string]string
}

// Option customises NewFetcher.
type Option func(*Fetcher)

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option { return func(f *Fetcher) { f.logger = l } }

// WithProject sets the project for references that do not name one. Without a
// project no Secret Manager client is created.
func WithProject(id string) Option { return func(f *Fetcher) { f.project = strings.TrimSpace(id) } }

// WithLocalFile overrides DefaultLocalFile. An empty path disables it.
func WithLocalFile(path string) Option { return func(f *Fetcher) { f.localPath = path } }

// WithClient injects a Secret Manager client; the Fetcher will not close it.
func WithClient(c accessor) Option { return func(f *Fetcher) { f.client = c } }

// NewFetcher builds a Fetcher. Failing to reach Secret Manager is logged and
// leaves only the local file.
func NewFetcher(ctx context.Context, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{localPath: DefaultLocalFile, logger: zap.NewNop(), cache: map[string]string{}}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	counter, err := otel.Meter("github.com/uluk20-22520/uluk-site/internal/platform/secrets").
		Int64Counter("secrets.resolved", metric.WithDescription("Secret references resolved by source"))
	if err == nil {
		f.resolved = counter
	}
	if f.client == nil && f.project != "" {
		client, err := secretmanager.NewClient(ctx)
		if err != nil {
			f.logger.Warn("secret manager unavailable; using local file only", zap.Error(err))
		} else {
			f.client, f.ownClient = client, true
		}
	}
	return f, nil
}

// Close releases a client created by NewFetcher.
func (f *Fetcher) Close() error {
	if f.ownClient {
		return f.client.Close()
	}
	return nil
}

// ResolveSecret returns the value behind ref, trying the cache, then Secret
// Manager, then the local file. Permission and availability failures fall
// through to the local file; other remote errors are returned.
func (f *Fetcher) ResolveSecret(ctx context.Context, ref string) (string, error) {
	r, err := parseReference(ref)
	if err != nil {
		return "", err
	}
	key := r.key()

	f.mu.Lock()
	value, ok := f.cache[key]
	f.mu.Unlock()
	if ok {
		f.count(ctx, "cache")
		return value, nil
	}

	if project := firstNonEmpty(r.project, f.project); project != "" && f.client != nil {
		value, err := f.remote(ctx, project, r)
		switch {
		case err == nil:
			f.remember(key, value)
			f.count(ctx, "secret_manager")
			return value, nil
		case !recoverable(err):
			return "", fmt.Errorf("secrets: %s: %w", r.name, err)
		}
		f.logger.Debug("secret manager miss; trying local file", zap.String("secret", r.name), zap.Error(err))
	}

	f.localOnce.Do(f.loadLocal)
	value, ok = f.local[key]
	if !ok {
		value, ok = f.local[r.name]
	}
	if !ok {
		return "", fmt.Errorf("secrets: %s not found", r.name)
	}
	f.remember(key, value)
	f.count(ctx, "local")
	return value, nil
}

func (f *Fetcher) remote(ctx context.Context, project string, r reference) (string, error) {
	name := "projects/" + project + "/secrets/" + r.name + "/versions/" + r.version
	resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", err
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("empty payload for %s", name)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (f *Fetcher) remember(key, value string) {
	f.mu.Lock()
	f.cache[key] = value
	f.mu.Unlock()
}

func (f *Fetcher) count(ctx context.Context, source string) {
	if f.resolved != nil {
		f.resolved.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
	}
}

// loadLocal reads lines of the form secret://name=value (sm:// also accepted).
func (f *Fetcher) loadLocal() {
	f.local = map[string]string{}
	if f.localPath == "" {
		return
	}
	file, err := os.Open(f.localPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.logger.Warn("cannot read local secrets", zap.String("path", f.localPath), zap.Error(err))
		}
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		r, err := parseReference(strings.Replace(strings.TrimSpace(k), "sm://", "secret://", 1))
		if err != nil {
			continue
		}
		v = strings.TrimSpace(v)
		f.local[r.key()] = v
		f.local[r.name] = v
	}
}

type reference struct {
	project string
	name    string
	version string
}

func (r reference) key() string { return r.project + "/" + r.name + "#" + r.version }

// parseReference accepts secret://name?version=v&project=p and
// secret://projects/p/secrets/name[/versions/v].
func parseReference(ref string) (reference, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return reference{}, fmt.Errorf("secrets: invalid reference %q: %w", ref, err)
	}
	if u.Scheme != "secret" {
		return reference{}, fmt.Errorf("secrets: unsupported scheme %q", u.Scheme)
	}
	path := strings.Trim(u.Host+u.Path, "/")
	if path == "" {
		return reference{}, fmt.Errorf("secrets: missing secret name in %q", ref)
	}
	r := reference{name: path, project: u.Query().Get("project"), version: u.Query().Get("version")}
	if parts := strings.Split(path, "/"); len(parts) >= 4 && parts[0] == "projects" && parts[2] == "secrets" {
		r.project, r.name = parts[1], parts[3]
		if len(parts) == 6 && parts[4] == "versions" {
			r.version = parts[5]
		}
	}
	if r.version == "" {
		r.version = "latest"
	}
	return r, nil
}

func recoverable(err error) bool {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated, codes.Unavailable, codes.DeadlineExceeded, codes.NotFound:
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

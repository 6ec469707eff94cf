package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// sources layers every configuration input. Lookups use dotted paths such as
// "server.addr"; environment-style inputs are matched through EnvName.
type sources struct {
	envMap map[string]string
	osEnv  *koanf.Koanf
	dotEnv map[string]string
	file   *koanf.Koanf
}

func newSources(opts loaderOptions) (*sources, error) {
	src := &sources{envMap: opts.envMap}

	if opts.configFile != "" && fileExists(opts.configFile) {
		k := koanf.New(".")
		if err := k.Load(file.Provider(opts.configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", opts.configFile, err)
		}
		src.file = k
	}

	dotEnv, err := loadDotEnv(opts.envFile)
	if err != nil {
		return nil, err
	}
	src.dotEnv = dotEnv

	if opts.useSystemEnv {
		// Keys keep their ULUK_* form; the "." delimiter never occurs in them so the tree stays flat.
		k := koanf.New(".")
		if err := k.Load(env.Provider(envPrefix, ".", func(s string) string { return s }), nil); err != nil {
			return nil, fmt.Errorf("config: loading environment: %w", err)
		}
		src.osEnv = k
	}
	return src, nil
}

func (s *sources) lookup(path string) (string, bool) {
	name := EnvName(path)
	if s.envMap != nil {
		if value, ok := s.envMap[name]; ok {
			return value, true
		}
	}
	if s.osEnv != nil && s.osEnv.Exists(name) {
		return s.osEnv.String(name), true
	}
	if s.dotEnv != nil {
		if value, ok := s.dotEnv[name]; ok {
			return value, true
		}
	}
	if s.file != nil && s.file.Exists(path) {
		return stringify(s.file.Get(path)), true
	}
	return "", false
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	f, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package i18n holds the localized strings used by the discovery service:
// scripted questions, quick-reply labels, summary headings and the
// apology texts returned when a turn fails.
//
// # Description
//
// Strings live in YAML files (one per locale) embedded in the binary.
// Nested keys are flattened with dots, so
//
//	options:
//	  budget:
//	    unsure: "Not sure yet"
//
// is looked up as "options.budget.unsure". Lookups fall back to English
// when a locale lacks a key, and to the key itself when English lacks it
// too, so a missing translation is visible but never fatal.
//
// An overlay directory can replace or extend entries at runtime (see
// LoadDir and Watch).
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// DefaultLocale is used for unknown or empty locale requests.
const DefaultLocale = "en"

// Supported lists the locales the service answers in, default first.
var Supported = []string{"en", "ro", "fr", "de", "es", "it", "ru", "zh", "ja"}

// Catalog is a concurrency-safe set of localized strings.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]map[string]string

	matcher language.Matcher
}

// Load builds a Catalog from the embedded locale files.
func Load() (*Catalog, error) {
	c := &Catalog{
		entries: make(map[string]map[string]string, len(Supported)),
	}

	tags := make([]language.Tag, len(Supported))
	for i, code := range Supported {
		tags[i] = language.MustParse(code)
	}
	c.matcher = language.NewMatcher(tags)

	files, err := fs.Glob(embedded, "locales/*.yaml")
	if err != nil {
		return nil, err
	}
	for _, name := range files {
		data, err := embedded.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		locale := strings.TrimSuffix(path.Base(name), ".yaml")
		if err := c.Merge(locale, data); err != nil {
			return nil, err
		}
	}
	if _, ok := c.entries[DefaultLocale]; !ok {
		return nil, fmt.Errorf("i18n: default locale %q missing", DefaultLocale)
	}
	return c, nil
}

// MustLoad is Load for package-level initialisation and tests.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Merge parses YAML and adds its entries to locale, replacing existing keys.
func (c *Catalog) Merge(locale string, data []byte) error {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("i18n: parse %s: %w", locale, err)
	}

	flat := make(map[string]string)
	flatten("", tree, flat)

	c.mu.Lock()
	defer c.mu.Unlock()
	dst, ok := c.entries[locale]
	if !ok {
		dst = make(map[string]string, len(flat))
		c.entries[locale] = dst
	}
	for k, v := range flat {
		dst[k] = v
	}
	return nil
}

func flatten(prefix string, node any, out map[string]string) {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, child, out)
		}
	case nil:
	default:
		out[prefix] = fmt.Sprint(v)
	}
}

// Match maps a requested locale (any BCP 47 tag, e.g. "ro-RO") to one of
// Supported. Unknown or empty input yields DefaultLocale.
func (c *Catalog) Match(requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return DefaultLocale
	}
	tag, err := language.Parse(requested)
	if err != nil {
		return DefaultLocale
	}
	_, index, confidence := c.matcher.Match(tag)
	if confidence == language.No {
		return DefaultLocale
	}
	return Supported[index]
}

// Lookup returns the raw string for key in locale, falling back to English.
func (c *Catalog) Lookup(locale, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if v, ok := c.entries[locale][key]; ok {
		return v, true
	}
	if v, ok := c.entries[DefaultLocale][key]; ok {
		return v, true
	}
	return "", false
}

// T returns the string for key with {name} placeholders replaced from vars.
// A missing key returns the key itself.
func (c *Catalog) T(locale, key string, vars map[string]string) string {
	s, ok := c.Lookup(locale, key)
	if !ok {
		return key
	}
	return interpolate(s, vars)
}

// Keys returns the sorted keys under prefix present in the English catalog.
// Used to enumerate option sets.
func (c *Catalog) Keys(prefix string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	prefix = strings.TrimSuffix(prefix, ".") + "."
	var keys []string
	for k := range c.entries[DefaultLocale] {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(keys)
	return keys
}

// For returns a Localizer bound to the matched locale.
func (c *Catalog) For(locale string) Localizer {
	return Localizer{catalog: c, locale: c.Match(locale)}
}

func interpolate(s string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(s, "{") {
		return s
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// =============================================================================
// Localizer
// =============================================================================

// Localizer is a Catalog view fixed to one locale.
type Localizer struct {
	catalog *Catalog
	locale  string
}

// Locale returns the matched locale code.
func (l Localizer) Locale() string {
	return l.locale
}

// T looks up key with optional placeholder values.
func (l Localizer) T(key string, vars ...map[string]string) string {
	var v map[string]string
	if len(vars) > 0 {
		v = vars[0]
	}
	return l.catalog.T(l.locale, key, v)
}

// Language returns the locale's display name, e.g. "Română".
func (l Localizer) Language() string {
	return l.T("language")
}

package i18n

import (
	"embed"
	"fmt"

	"github.com/mohitkumar/assist/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	LocaleDE = "de"
	LocaleEN = "en"
)

//go:embed locales/*.yaml
var localeFiles embed.FS

var catalogues = map[string]map[string]string{}

func init() {
	for _, locale := range SupportedLocales() {
		catalogue, err := loadCatalogue(locale)
		if err != nil {
			panic(fmt.Sprintf("can not load locale %s: %v", locale, err))
		}
		catalogues[locale] = catalogue
	}
}

func SupportedLocales() []string {
	return []string{LocaleDE, LocaleEN}
}

// T resolves a dot-separated message key for the locale. Extra arguments
// are applied as format arguments. An unknown key resolves to the key
// itself so a missing translation never breaks assistance.
func T(locale string, key string, args ...any) string {
	catalogue, ok := catalogues[locale]
	if !ok {
		catalogue = catalogues[LocaleEN]
	}
	message, ok := catalogue[key]
	if !ok {
		logger.Warn("missing translation", zap.String("locale", locale), zap.String("key", key))
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(message, args...)
	}
	return message
}

func loadCatalogue(locale string) (map[string]string, error) {
	data, err := localeFiles.ReadFile(fmt.Sprintf("locales/%s.yaml", locale))
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	catalogue := map[string]string{}
	flatten("", tree, catalogue)
	return catalogue, nil
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for key, value := range tree {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flatten(path, v, out)
		case string:
			out[path] = v
		default:
			out[path] = fmt.Sprintf("%v", v)
		}
	}
}

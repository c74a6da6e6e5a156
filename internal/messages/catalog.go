// Package messages holds the user-facing texts of the rate dialogue.
package messages

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/m3rciful/ratebot/core/telegram/format"
)

// Catalog is the set of reply templates. Templates are Telegram Markdown (v1)
// and use {name} placeholders filled by Render.
type Catalog struct {
	Welcome           string `yaml:"welcome"`
	InputDate         string `yaml:"input_date"`
	InvalidDate       string `yaml:"invalid_date"`
	InputCurrencyCode string `yaml:"input_currency_code"`
	DictionaryButton  string `yaml:"dictionary_button"`
	RateHeader        string `yaml:"rate_header"`
	Rates             string `yaml:"rates"`
	NotFound          string `yaml:"not_found"`
	AnotherCurrency   string `yaml:"another_currency"`
	Yes               string `yaml:"yes"`
	No                string `yaml:"no"`
	Failure           string `yaml:"failure"`
}

// Default returns the built-in English catalog.
func Default() Catalog {
	return Catalog{
		Welcome:           "Hello! I look up historical *PrivatBank* exchange rates.\n",
		InputDate:         "Send me a date, for example *14.03.2023*.",
		InvalidDate:       "That date is out of range. Rates are available from {start} to {today}.\n",
		InputCurrencyCode: "Now send a three-letter currency code, for example *USD*.",
		DictionaryButton:  "Currency codes",
		RateHeader:        "*Rate* {base} / {currency} on {date}\n",
		Rates:             "Purchase: {purchase}\nSale: {sale}\nNBU purchase: {purchase_nb}\nNBU sale: {sale_nb}",
		NotFound:          "No rate for {currency} on {date}.",
		AnotherCurrency:   "Another currency for {date}?",
		Yes:               "Yes",
		No:                "No",
		Failure:           "Sorry, the bank service is unavailable right now. Send a date to try again.",
	}
}

// Load overlays the YAML file at path on the defaults. An empty path yields Default().
func Load(path string) (Catalog, error) {
	cat := Default()
	if strings.TrimSpace(path) == "" {
		return cat, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("messages: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, fmt.Errorf("messages: parse %s: %w", path, err)
	}
	if err := cat.Validate(); err != nil {
		return Catalog{}, fmt.Errorf("messages: %s: %w", path, err)
	}
	return cat, nil
}

// Validate rejects blank templates and templates that put a placeholder
// inside a bold or italic entity. Markdown v1 has no escaping inside an
// entity, so substituted user text could not be escaped there.
func (c Catalog) Validate() error {
	v := reflect.ValueOf(c)
	t := v.Type()
	var missing, nested []string
	for i := 0; i < t.NumField(); i++ {
		tmpl, name := v.Field(i).String(), t.Field(i).Tag.Get("yaml")
		switch {
		case strings.TrimSpace(tmpl) == "":
			missing = append(missing, name)
		case placeholderInEntity(tmpl):
			nested = append(nested, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("empty templates: %s", strings.Join(missing, ", "))
	}
	if len(nested) > 0 {
		return fmt.Errorf("placeholders inside * or _ entities: %s", strings.Join(nested, ", "))
	}
	return nil
}

// placeholderInEntity reports whether a {name} placeholder of tmpl sits
// between unescaped * or _ markers.
func placeholderInEntity(tmpl string) bool {
	var bold, italic bool
	for i := 0; i < len(tmpl); i++ {
		switch tmpl[i] {
		case '\\':
			i++
		case '*':
			bold = !bold
		case '_':
			italic = !italic
		case '{':
			end := strings.IndexByte(tmpl[i:], '}')
			if end < 0 {
				return false
			}
			if bold || italic {
				return true
			}
			i += end
		}
	}
	return false
}

// Vars maps placeholder names to values.
type Vars map[string]string

// Render substitutes {name} placeholders. Values are escaped for Markdown so
// user input cannot break formatting. Unknown placeholders are left as is.
func Render(tmpl string, vars Vars) string {
	if len(vars) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", format.EscapeMD(v))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

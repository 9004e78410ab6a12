package install

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"limeinstall/internal/command"
)

// DefaultLocale is used when no locale was chosen.
const DefaultLocale = "en_US.UTF-8"

// ErrInvalidLocale is returned for locale names that cannot be written safely.
var ErrInvalidLocale = errors.New("invalid locale")

// LocaleGenEntry returns the /etc/locale.gen line for locale, which names the
// charset after the locale ("en_US.UTF-8 UTF-8").
func LocaleGenEntry(locale string) string {
	charset := "UTF-8"
	if i := strings.IndexByte(locale, '.'); i >= 0 && i < len(locale)-1 {
		charset = locale[i+1:]
		if j := strings.IndexByte(charset, '@'); j >= 0 {
			charset = charset[:j]
		}
	}
	return locale + " " + charset
}

func validLocale(locale string) bool {
	if locale == "" {
		return false
	}
	for _, r := range locale {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '.', r == '-', r == '@':
		default:
			return false
		}
	}
	return true
}

func (o *Orchestrator) configureLocale(locale string) (warnings error, err error) {
	if locale == "" {
		locale = DefaultLocale
	}
	if !validLocale(locale) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocale, locale)
	}

	target := o.target()
	return o.sequence().Run([]command.Step{
		{
			Desc:    "create /etc/default",
			Command: "mkdir -p " + command.Quote(path.Join(target, "etc/default")),
			Fatal:   true,
			Code:    CodeLocale,
		},
		{
			Desc:    "write /etc/locale.gen",
			Command: fmt.Sprintf("printf '%%s\\n' %s > %s", command.Quote(LocaleGenEntry(locale)), command.Quote(path.Join(target, "etc/locale.gen"))),
			Fatal:   true,
			Code:    CodeLocale,
		},
		{
			Desc:    "write /etc/default/locale",
			Command: fmt.Sprintf("printf 'LANG=%%s\\n' %s > %s", command.Quote(locale), command.Quote(path.Join(target, "etc/default/locale"))),
			Fatal:   true,
			Code:    CodeLocale,
		},
		{
			Desc:    "generate locales",
			Command: "locale-gen",
			Chroot:  target,
		},
	})
}

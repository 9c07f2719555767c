package core

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strings"
	"text/template"
)

// Expand resolves template directives in a config value. Two functions are
// available: {{ env "VAR" }} reads an environment variable and
// {{ exec "cmd" }} runs a command and uses its trimmed output. This keeps
// credentials and host names out of config files.
func Expand(value string) (string, error) {
	tmpl, err := template.New("expand_variables").
		Funcs(template.FuncMap{
			"env": func(envvar string) string {
				return os.Getenv(envvar)
			},
			"exec": func(line string) (string, error) {
				if strings.Contains(line, " | ") {
					out, err := exec.Command("sh", "-c", line).Output()
					return strings.TrimSpace(string(out)), err
				}

				l := strings.Split(line, " ")
				if len(l) < 1 {
					return "", errors.New("no command provided")
				}

				out, err := exec.Command(l[0], l[1:]...).Output()
				return strings.TrimSpace(string(out)), err
			},
		}).
		Parse(value)
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, nil); err != nil {
		return "", err
	}

	return out.String(), nil
}

// ExpandOrDefault silently suppresses errors.
func ExpandOrDefault(value string) string {
	ex, err := Expand(value)
	if err != nil {
		return value
	}
	return ex
}

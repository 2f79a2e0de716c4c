package script

import (
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"mvdan.cc/sh/v3/syntax"
)

// DefaultTemplate is the script layout used when a Renderer is given none.
// Fields: .Name .LogDir .Header .Preamble .Exports .Command.
const DefaultTemplate = `#!/bin/bash

#SBATCH -e {{ .LogDir }}/{{ .Name }}.%J.err
#SBATCH -o {{ .LogDir }}/{{ .Name }}.%J.out
#SBATCH -J {{ .Name }}
#SBATCH --no-requeue
{{ .Header }}
{{ if .Preamble }}
{{ .Preamble }}
{{ end }}
{{ range .Exports }}{{ . }}
{{ end }}###
{{ .Command }}
`

func templateFuncs() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["shellQuote"] = shellQuote
	funcs["q"] = shellQuote
	return funcs
}

func shellQuote(s string) (string, error) {
	return syntax.Quote(s, syntax.LangBash)
}

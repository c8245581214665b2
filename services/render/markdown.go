// Package render converts canonical responses to HTML.
package render

import (
	"fmt"

	"github.com/russross/blackfriday/v2"
)

// Markdown renders markdown text to HTML with tables, fenced code
// blocks and hard line breaks enabled.
func Markdown(text string) string {
	html := blackfriday.Run([]byte(text),
		blackfriday.WithExtensions(
			blackfriday.CommonExtensions|blackfriday.HardLineBreak,
		),
	)
	return string(html)
}

// FailureText builds the stylized markdown body stored and shown in
// place of a response when generation fails.
func FailureText(errorMessage string) string {
	return fmt.Sprintf(
		"**ERRO: Não foi possível gerar o conteúdo**\n\n%s\n\nPor favor, tente novamente mais tarde ou selecione outro modelo de IA.",
		errorMessage,
	)
}

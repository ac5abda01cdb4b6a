package output

import (
	"bytes"
	"fmt"
	"io"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// WriteMarkdown renders the html table and converts it to a GitHub flavored
// markdown table.
func WriteMarkdown(w io.Writer, e *Export) error {
	var buf bytes.Buffer
	if err := html.Render(&buf, buildPage(e)); err != nil {
		return err
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	converter.Remove("title")
	converter.AddRules(md.Rule{
		Filter: []string{"img"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			src, ok := selec.Attr("src")
			if !ok || src == "" {
				empty := ""
				return &empty
			}
			alt, _ := selec.Attr("alt")
			str := fmt.Sprintf("![%s](%s)", alt, src)
			return &str
		},
	})

	mdStr, err := converter.ConvertString(buf.String())
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, mdStr+"\n")
	return err
}

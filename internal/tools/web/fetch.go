// Package web provides the HTTP retrieval tool. Fetched HTML is reduced to
// markdown so observations stay compact for the decision engine.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"dataworks/internal/logging"
	"dataworks/internal/tools"
)

const (
	userAgent    = "Mozilla/5.0 (compatible; dataworks-agent/1.0)"
	maxBodyBytes = 2 << 20
)

var (
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(`[ \t]{2,}`)
)

// FetchTool returns a tool that fetches a URL and returns its content as
// markdown. A non-2xx response is a target failure carrying the status code;
// only transport-level faults are execution errors.
func FetchTool(client *http.Client) *tools.Tool {
	if client == nil {
		client = http.DefaultClient
	}
	return &tools.Tool{
		Name:        "web_fetch",
		Description: "Fetch a URL over HTTP GET and return its content, HTML reduced to markdown",
		SideEffect:  tools.SideEffectReadOnly,
		Timeout:     60 * time.Second,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return executeFetch(ctx, client, args)
		},
		Schema: tools.Schema{
			Required: []string{"url"},
			Properties: map[string]tools.Property{
				"url": {
					Type:        "string",
					Description: "The URL to fetch",
				},
				"include_links": {
					Type:        "boolean",
					Description: "Include hyperlinks in the markdown output (default: true)",
					Default:     true,
				},
			},
		},
	}
}

func executeFetch(ctx context.Context, client *http.Client, args map[string]any) (string, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return "", fmt.Errorf("url is required")
	}

	includeLinks := true
	if il, ok := args["include_links"].(bool); ok {
		includeLinks = il
	}

	logging.ToolsDebug("web_fetch: %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: bad url %q: %v", tools.ErrToolExecution, url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: fetch %s: %v", tools.ErrToolExecution, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read response from %s: %v", tools.ErrToolExecution, url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The server answered; that is the target failing, not us.
		return string(body), tools.NewTargetError(resp.StatusCode, "HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		return string(body), nil
	}

	markdown, err := htmlToMarkdown(string(body), includeLinks)
	if err != nil {
		return string(body), nil // fall back to raw body on parse trouble
	}
	return markdown, nil
}

// htmlToMarkdown converts HTML to a simplified markdown format.
func htmlToMarkdown(htmlContent string, includeLinks bool) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	extractText(doc, &sb, includeLinks, 0)
	return cleanMarkdown(sb.String()), nil
}

func extractText(n *html.Node, sb *strings.Builder, includeLinks bool, depth int) {
	if depth > 50 {
		return
	}

	switch n.Type {
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "nav", "footer", "header":
			return
		case "title", "h1":
			sb.WriteString("\n\n# ")
		case "h2":
			sb.WriteString("\n\n## ")
		case "h3":
			sb.WriteString("\n\n### ")
		case "h4", "h5", "h6":
			sb.WriteString("\n\n#### ")
		case "p", "div":
			sb.WriteString("\n\n")
		case "br":
			sb.WriteString("\n")
		case "li":
			sb.WriteString("\n- ")
		case "code":
			sb.WriteString("`")
		case "pre":
			sb.WriteString("\n\n```\n")
		case "strong", "b":
			sb.WriteString("**")
		case "em", "i":
			sb.WriteString("*")
		case "a":
			if includeLinks && linkHref(n) != "" {
				sb.WriteString("[")
			}
		case "img":
			if alt := getAttr(n, "alt"); alt != "" {
				fmt.Fprintf(sb, "[Image: %s]", alt)
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, sb, includeLinks, depth+1)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "title", "h1", "h2", "h3", "h4", "h5", "h6":
			sb.WriteString("\n\n")
		case "code":
			sb.WriteString("`")
		case "pre":
			sb.WriteString("\n```\n\n")
		case "strong", "b":
			sb.WriteString("**")
		case "em", "i":
			sb.WriteString("*")
		case "a":
			if includeLinks {
				if href := linkHref(n); href != "" {
					fmt.Fprintf(sb, "](%s)", href)
				}
			}
		}
	}
}

func linkHref(n *html.Node) string {
	href := getAttr(n, "href")
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	return href
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// cleanMarkdown removes excessive whitespace.
func cleanMarkdown(s string) string {
	s = multiSpacePattern.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = multiNewlinePattern.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

package linkcheck

import (
	"bytes"
	"iter"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/Bahjat/page-link-checker/internal/classify"
	"github.com/Bahjat/page-link-checker/internal/model"
)

// ExtractOptions controls which part of a document is searched for links.
type ExtractOptions struct {
	// CheckEntireDocument includes links in <head>; otherwise only body
	// content is searched.
	CheckEntireDocument bool
}

// ExtractLinks returns a lazy sequence of the checkable links in document,
// resolved against base. Each call re-tokenizes the document.
//
// Malformed markup never produces an error: the tokenizer recovers where it
// can and the sequence simply ends where it cannot.
func ExtractLinks(document string, base *url.URL, opts ExtractOptions) iter.Seq[model.Link] {
	return func(yield func(model.Link) bool) {
		if document == "" || base == nil {
			return
		}
		e := &extractor{
			z:     html.NewTokenizer(strings.NewReader(document)),
			base:  base,
			opts:  opts,
			pos:   position{line: 1, column: 1},
			yield: yield,
		}
		e.run()
	}
}

// headElements may appear before <body> without implicitly opening it.
var headElements = map[string]bool{
	"base": true, "link": true, "meta": true, "script": true, "style": true,
	"title": true, "noscript": true, "template": true,
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "param": true,
	"source": true, "track": true, "wbr": true,
}

type position struct {
	line, column int
}

// advance moves p past raw, counting columns in runes.
func (p position) advance(raw []byte) position {
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		raw = raw[size:]
		if r == '\n' {
			p.line++
			p.column = 1
			continue
		}
		p.column++
	}
	return p
}

// pending is a link whose element is still open and collecting inner text.
type pending struct {
	link   model.Link
	text   strings.Builder
	closed bool
}

type extractor struct {
	z     *html.Tokenizer
	base  *url.URL
	opts  ExtractOptions
	pos   position
	yield func(model.Link) bool

	queue []*pending
	scope documentScope
	done  bool
}

func (e *extractor) run() {
	for !e.done {
		tt := e.z.Next()
		if tt == html.ErrorToken {
			break
		}

		raw := e.z.Raw()
		start := e.pos
		e.pos = e.pos.advance(raw)

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			// TagName and TagAttr rewrite the token buffer in place.
			e.startTag(tt, bytes.Clone(raw), start)
		case html.EndTagToken:
			tn, _ := e.z.TagName()
			e.endTag(string(tn))
		case html.TextToken:
			e.text(e.z.Text())
		}
	}

	for _, p := range e.queue {
		p.closed = true
	}
	e.flush()
}

func (e *extractor) startTag(tt html.TokenType, raw []byte, start position) {
	tn, hasAttr := e.z.TagName()
	tag := string(tn)
	inBody := e.scope.start(tag)

	// A new element of the same kind implicitly closes an open one, as
	// happens with unterminated <a> tags.
	e.closeOpen(tag, false)

	if !hasAttr || (!inBody && !e.opts.CheckEntireDocument) {
		return
	}

	attr, value, ok := linkAttr(e.z)
	if !ok {
		return
	}
	link, ok := e.newLink(tag, attr, value)
	if !ok {
		return
	}
	if off := attrOffset(raw, attr); off >= 0 {
		start = start.advance(raw[:off])
	}
	link.Line, link.Column = start.line, start.column

	p := &pending{link: link}
	p.closed = tt == html.SelfClosingTagToken || voidElements[tag]
	e.queue = append(e.queue, p)
	e.flush()
}

func (e *extractor) endTag(tag string) {
	e.scope.end(tag)
	e.closeOpen(tag, true)
	e.flush()
}

// closeOpen closes the most recent open link element named tag. When
// cascade is set every link opened after it is closed too, since their
// elements cannot outlive their ancestor.
func (e *extractor) closeOpen(tag string, cascade bool) {
	for i := len(e.queue) - 1; i >= 0; i-- {
		p := e.queue[i]
		if p.closed || p.link.TagName != tag {
			continue
		}
		p.closed = true
		if cascade {
			for _, later := range e.queue[i+1:] {
				later.closed = true
			}
		}
		return
	}
}

func (e *extractor) text(b []byte) {
	for _, p := range e.queue {
		if !p.closed {
			p.text.Write(b)
		}
	}
}

// flush yields closed links from the front of the queue so that links are
// emitted in document order.
func (e *extractor) flush() {
	for len(e.queue) > 0 && e.queue[0].closed && !e.done {
		p := e.queue[0]
		e.queue = e.queue[1:]
		p.link.Text = strings.Join(strings.Fields(p.text.String()), " ")
		if !e.yield(p.link) {
			e.done = true
		}
	}
}

func (e *extractor) newLink(tag, attr, value string) (model.Link, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == "#" {
		return model.Link{}, false
	}

	resolved, err := e.base.Parse(value)
	if err != nil || !classify.IsCheckableScheme(resolved.Scheme) {
		return model.Link{}, false
	}

	return model.Link{
		URL:        resolved.String(),
		Attribute:  attr,
		TagName:    tag,
		IsInternal: !classify.HasExplicitScheme(value),
	}, true
}

// linkAttr returns the href attribute if present, otherwise src.
func linkAttr(z *html.Tokenizer) (attr, value string, ok bool) {
	var src string
	var hasSrc bool
	for {
		key, val, more := z.TagAttr()
		switch string(key) {
		case "href":
			return "href", string(val), true
		case "src":
			if !hasSrc {
				src, hasSrc = string(val), true
			}
		}
		if !more {
			break
		}
	}
	if hasSrc {
		return "src", src, true
	}
	return "", "", false
}

// attrOffset finds where the attribute name starts inside a raw start tag.
// Quoted attribute values are skipped, so a name inside another value
// never matches.
func attrOffset(raw []byte, attr string) int {
	name := []byte(attr)
	var quote, prev byte
	for i := 1; i < len(raw); i++ {
		c := raw[i]
		if quote != 0 {
			if c == quote {
				quote, prev = 0, c
			}
			continue
		}
		if (c == '"' || c == '\'') && prev == '=' {
			quote = c
			continue
		}
		if !isSpace(c) {
			prev = c
		}
		if !isSpace(raw[i-1]) || i+len(name) > len(raw) || !bytes.EqualFold(raw[i:i+len(name)], name) {
			continue
		}
		if followedByEquals(raw[i+len(name):]) {
			return i
		}
	}
	return -1
}

func followedByEquals(b []byte) bool {
	b = bytes.TrimLeft(b, " \t\r\n\f")
	return len(b) > 0 && b[0] == '='
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// documentScope tracks whether tokens belong to the body, following the
// HTML insertion-mode rules closely enough to separate <head> from <body>.
type documentScope struct {
	inHead, inBody, afterBody bool
}

func (s *documentScope) start(tag string) bool {
	switch {
	case tag == "html":
		return false
	case tag == "head":
		if !s.inBody {
			s.inHead = true
		}
		return false
	case tag == "body":
		s.inHead, s.inBody = false, true
		return true
	case s.inHead || s.afterBody:
		return false
	case s.inBody:
		return true
	case headElements[tag]:
		return false
	default:
		s.inBody = true
		return true
	}
}

func (s *documentScope) end(tag string) {
	switch tag {
	case "head":
		s.inHead = false
	case "body":
		s.inBody, s.afterBody = false, true
	}
}

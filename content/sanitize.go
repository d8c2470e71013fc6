package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// strippedElements never survive sanitising, content included.
const strippedElements = "script, style, iframe, frame, frameset, object, embed, applet, base, meta, link, form"

// urlAttributes are checked for script URLs.
var urlAttributes = []string{"href", "src", "action", "formaction", "xlink:href", "poster"}

// animationValueAttributes hold the values an SVG animation assigns to its
// target attribute, which may be href. values is a ';'-separated list.
var animationValueAttributes = []string{"values", "to", "from", "by"}

// SanitizeHTML strips active content from a post body: dangerous elements,
// inline event handlers and javascript:/vbscript:/data: URLs (data: images
// are kept). The body comes from a trusted CMS; this guards against pasted
// embeds rather than hostile input.
func SanitizeHTML(body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", err
	}
	doc.Find(strippedElements).Remove()
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if len(s.Nodes) == 0 {
			return
		}
		var drop []string
		for _, a := range s.Nodes[0].Attr {
			key := strings.ToLower(a.Key)
			if strings.HasPrefix(key, "on") || (key == "style" && strings.Contains(strings.ToLower(a.Val), "expression(")) {
				drop = append(drop, a.Key)
			}
		}
		for _, name := range urlAttributes {
			if v, ok := s.Attr(name); ok && unsafeURL(v, s.Is("img") && name == "src") {
				drop = append(drop, name)
			}
		}
		for _, name := range animationValueAttributes {
			v, ok := s.Attr(name)
			if !ok {
				continue
			}
			for _, part := range strings.Split(v, ";") {
				if unsafeURL(part, false) {
					drop = append(drop, name)
					break
				}
			}
		}
		for _, name := range drop {
			s.RemoveAttr(name)
		}
	})
	return doc.Find("body").Html()
}

func unsafeURL(raw string, imageSource bool) bool {
	v := strings.ToLower(strings.Join(strings.Fields(raw), ""))
	switch {
	case strings.HasPrefix(v, "javascript:"), strings.HasPrefix(v, "vbscript:"):
		return true
	case strings.HasPrefix(v, "data:"):
		return !(imageSource && strings.HasPrefix(v, "data:image/"))
	default:
		return false
	}
}

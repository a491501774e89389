package pages

import (
	"strings"

	"sportscentre/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"golang.org/x/net/html"
)

const profileDetailSelector = "div.passportDetail"

// labelSimilarity is the minimum Jaro-Winkler similarity for a label that does not match a
// field exactly to still be bound to it.
const labelSimilarity = 0.92

// Profile is the account holder's details.
type Profile struct {
	Name             string
	Email            string
	Mobile           string
	Membership       string
	MembershipNumber string
	MembershipStatus string
	MemberStatus     string
}

// Detail is one labelled block of the profile page.
type Detail struct {
	Label string
	Value string
}

// Binding says how ProfileDetails were assigned to Profile fields.
type Binding int

const (
	BindByLabel Binding = iota
	// BindByPosition is the fallback used when no label is recognized but the page still has
	// exactly one block per field, in which case blocks are assigned in field order.
	BindByPosition
)

type profileField struct {
	label string
	set   func(p *Profile, v string)
}

// the order matches the order the portal renders the blocks in
var profileFields = []profileField{
	{label: "name", set: func(p *Profile, v string) { p.Name = v }},
	{label: "email", set: func(p *Profile, v string) { p.Email = v }},
	{label: "mobile", set: func(p *Profile, v string) { p.Mobile = v }},
	{label: "membership", set: func(p *Profile, v string) { p.Membership = v }},
	{label: "membership number", set: func(p *Profile, v string) { p.MembershipNumber = v }},
	{label: "membership status", set: func(p *Profile, v string) { p.MembershipStatus = v }},
	{label: "member status", set: func(p *Profile, v string) { p.MemberStatus = v }},
}

func normalizeLabel(label string) string {
	label = strings.ToLower(htmlutil.Clean(label))
	return strings.TrimSpace(strings.TrimSuffix(label, ":"))
}

// shortForms are abbreviations that are not a prefix of the word they stand for.
var shortForms = map[string]string{
	"no":  "number",
	"nr":  "number",
	"tel": "telephone",
}

// abbreviates reports whether every word of `label` is a prefix or a short form of the matching
// word of `field`, ex. "membership no" and "memb num" abbreviate "membership number". Single
// letters never count.
func abbreviates(label, field string) bool {
	labelWords := strings.Fields(label)
	fieldWords := strings.Fields(field)
	if len(labelWords) == 0 || len(labelWords) != len(fieldWords) {
		return false
	}
	for i := range labelWords {
		word := strings.TrimSuffix(labelWords[i], ".")
		if len(word) < 2 {
			return false
		}
		if !strings.HasPrefix(fieldWords[i], word) && shortForms[word] != fieldWords[i] {
			return false
		}
	}
	return true
}

// mostSimilar returns the index of the unbound field most similar to `label`, or -1 when none
// reaches labelSimilarity. Fields with as many words as the label are tried first.
func mostSimilar(label string, bound []bool) int {
	words := len(strings.Fields(label))
	for _, sameWords := range []bool{true, false} {
		best := -1
		bestSimilarity := 0.0
		for f, field := range profileFields {
			if bound[f] || (len(strings.Fields(field.label)) == words) != sameWords {
				continue
			}
			similarity := matchr.JaroWinkler(label, field.label, false)
			if similarity > bestSimilarity {
				best = f
				bestSimilarity = similarity
			}
		}
		if best >= 0 && bestSimilarity >= labelSimilarity {
			return best
		}
	}
	return -1
}

// ProfileDetails returns every labelled block of the profile page in document order.
func (Legend) ProfileDetails(body []byte) ([]Detail, error) {
	doc, err := document(PageProfile, body)
	if err != nil {
		return nil, err
	}

	var details []Detail
	doc.Find(profileDetailSelector).Each(func(_ int, div *goquery.Selection) {
		label := htmlutil.Text(div.Find("h4").First())

		var value strings.Builder
		for child := div.Nodes[0].FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode && child.Data == "h4" {
				continue
			}
			value.WriteString(htmlutil.GetText(child))
		}

		details = append(details, Detail{
			Label: strings.TrimSpace(strings.TrimSuffix(label, ":")),
			Value: htmlutil.Clean(value.String()),
		})
	})

	if len(details) == 0 {
		return nil, parseError(PageProfile, "no account details found", nil)
	}
	return details, nil
}

// BindProfile assigns details to Profile fields by their label: exact matches first, then
// abbreviations, then the most similar remaining field if it is similar enough. Labels that
// bind to nothing are returned in `unbound`.
func BindProfile(details []Detail) (profile Profile, binding Binding, unbound []string) {
	bound := make([]bool, len(profileFields))
	matched := make([]bool, len(details))

	for i, d := range details {
		label := normalizeLabel(d.Label)
		for f, field := range profileFields {
			if !bound[f] && field.label == label {
				field.set(&profile, d.Value)
				bound[f] = true
				matched[i] = true
				break
			}
		}
	}

	for i, d := range details {
		if matched[i] {
			continue
		}
		label := normalizeLabel(d.Label)
		for f, field := range profileFields {
			if !bound[f] && abbreviates(label, field.label) {
				field.set(&profile, d.Value)
				bound[f] = true
				matched[i] = true
				break
			}
		}
	}

	for i, d := range details {
		if matched[i] {
			continue
		}
		best := mostSimilar(normalizeLabel(d.Label), bound)
		if best < 0 {
			continue
		}
		profileFields[best].set(&profile, d.Value)
		bound[best] = true
		matched[i] = true
	}

	anyMatched := false
	for i, d := range details {
		if matched[i] {
			anyMatched = true
			continue
		}
		unbound = append(unbound, d.Label)
	}

	if !anyMatched && len(details) == len(profileFields) {
		profile = Profile{}
		for i, d := range details {
			profileFields[i].set(&profile, d.Value)
		}
		return profile, BindByPosition, nil
	}

	return profile, BindByLabel, unbound
}

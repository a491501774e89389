package pages

const tokenSelector = `input[name=__RequestVerificationToken]`

// LoginToken returns the anti-forgery token embedded in the login form, or "" if the page
// does not carry one (portal down or markup changed).
func (Legend) LoginToken(body []byte) (string, error) {
	doc, err := document(PageLogin, body)
	if err != nil {
		return "", err
	}
	return doc.Find(tokenSelector).First().AttrOr("value", ""), nil
}

package places

import "net/url"

const logoURLPrefix = "https://logo.clearbit.com/"

// IconURL derives a logo URL from a place's website. It returns "" when the
// website is missing or not an absolute URL.
func IconURL(websiteURI string) string {
	if websiteURI == "" {
		return ""
	}
	u, err := url.Parse(websiteURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return logoURLPrefix + u.Host
}

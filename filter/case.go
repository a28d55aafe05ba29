package filter

import "strings"

var acronyms = map[string]bool{
	"id": true, "url": true, "uri": true, "api": true, "http": true, "https": true,
	"html": true, "xml": true, "json": true, "sql": true, "uuid": true, "uid": true,
	"ip": true, "tcp": true, "udp": true, "rpc": true, "grpc": true, "oauth": true,
	"jwt": true, "ssh": true, "tls": true, "ssl": true, "ui": true, "ux": true,
	"seo": true, "cms": true, "db": true, "os": true, "io": true, "pdf": true,
	"csv": true, "svg": true, "png": true, "jpg": true, "gif": true, "ftp": true,
	"smtp": true, "dns": true, "cdn": true, "cpu": true, "gpu": true, "vpn": true,
}

// SmartPascalCase converts a camelCase client key to the Go field name,
// upper-casing common acronyms: "companyId" becomes "CompanyID".
func SmartPascalCase(s string) string {
	if s == "" {
		return s
	}

	var words []string
	var currentWord strings.Builder

	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' && currentWord.Len() > 0 {
			words = append(words, strings.ToLower(currentWord.String()))
			currentWord.Reset()
		}
		currentWord.WriteRune(r)
	}
	if currentWord.Len() > 0 {
		words = append(words, strings.ToLower(currentWord.String()))
	}

	var result strings.Builder
	for _, word := range words {
		if acronyms[word] {
			result.WriteString(strings.ToUpper(word))
			continue
		}
		result.WriteString(strings.ToUpper(word[:1]) + word[1:])
	}
	return result.String()
}

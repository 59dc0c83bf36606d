package utils

import (
	"regexp"
	"strings"
)

// PIIMasker masks customer contact details before they reach the logs.
// Generated customers carry realistic emails, names and phone numbers, so
// the dataset is treated like production data once it leaves the generator.
type PIIMasker struct {
	emailRegex *regexp.Regexp
	phoneRegex *regexp.Regexp
	ipv4Regex  *regexp.Regexp
	digitRegex *regexp.Regexp
}

// NewPIIMasker creates a new PII masker instance
func NewPIIMasker() *PIIMasker {
	return &PIIMasker{
		emailRegex: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		phoneRegex: regexp.MustCompile(`\(\d{3}\)\s?\d{3}[-.]\d{4}|\b\d{3}[-.]\d{3}[-.]\d{4}\b`),
		ipv4Regex:  regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
		digitRegex: regexp.MustCompile(`\d`),
	}
}

// MaskEmail masks an email address: john.doe@example.com -> j******e@e*****e.com
func (m *PIIMasker) MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[MASKED_EMAIL]"
	}
	local := parts[0]
	domain := parts[1]

	maskedLocal := maskMiddle(local)
	domainParts := strings.Split(domain, ".")
	if len(domainParts) >= 2 {
		return maskedLocal + "@" + maskMiddle(domainParts[0]) + "." + domainParts[len(domainParts)-1]
	}
	return maskedLocal + "@[MASKED]"
}

// MaskPhone masks every digit after the area code: 555-123-4567 -> 555-***-****
func (m *PIIMasker) MaskPhone(phone string) string {
	if phone == "" {
		return ""
	}
	digits := m.digitRegex.FindAllStringIndex(phone, -1)
	if len(digits) < 4 {
		return "[MASKED_PHONE]"
	}
	result := []byte(phone)
	for _, d := range digits[3:] {
		result[d[0]] = '*'
	}
	return string(result)
}

// MaskName keeps the initial of every word: Jane Doe -> J*** D**
func (m *PIIMasker) MaskName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		if len(w) > 1 {
			words[i] = w[:1] + strings.Repeat("*", len(w)-1)
		}
	}
	return strings.Join(words, " ")
}

// MaskIP masks an IPv4 address: 192.168.1.100 -> 192.168.***.***
func (m *PIIMasker) MaskIP(ip string) string {
	if ip == "" {
		return ""
	}
	parts := strings.Split(ip, ".")
	if len(parts) == 4 {
		return parts[0] + "." + parts[1] + ".***.***"
	}
	return "[MASKED_IP]"
}

// MaskAll masks all PII patterns in a string (for log sanitization)
func (m *PIIMasker) MaskAll(text string) string {
	text = m.emailRegex.ReplaceAllStringFunc(text, m.MaskEmail)
	text = m.ipv4Regex.ReplaceAllStringFunc(text, m.MaskIP)
	text = m.phoneRegex.ReplaceAllStringFunc(text, m.MaskPhone)
	return text
}

// maskMiddle keeps the first and last character visible
func maskMiddle(s string) string {
	if len(s) <= 2 {
		return strings.Repeat("*", len(s))
	}
	return s[:1] + strings.Repeat("*", len(s)-2) + s[len(s)-1:]
}

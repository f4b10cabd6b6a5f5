package utils

// MaskPhone obscures the middle of a phone number for public search results.
// Numbers shorter than 8 characters are returned unchanged since there is
// not enough material to mask safely.
func MaskPhone(phone string) string {
	if len(phone) < 8 {
		return phone
	}
	return phone[:7] + "***" + phone[len(phone)-3:]
}

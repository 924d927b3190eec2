package match

import "regexp"

// Verhoeff checksum tables: d is the dihedral group D5 multiplication
// table, p the position permutation table.
var verhoeffD = [10][10]int{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	{1, 2, 3, 4, 0, 6, 7, 8, 9, 5},
	{2, 3, 4, 0, 1, 7, 8, 9, 5, 6},
	{3, 4, 0, 1, 2, 8, 9, 5, 6, 7},
	{4, 0, 1, 2, 3, 9, 5, 6, 7, 8},
	{5, 9, 8, 7, 6, 0, 4, 3, 2, 1},
	{6, 5, 9, 8, 7, 1, 0, 4, 3, 2},
	{7, 6, 5, 9, 8, 2, 1, 0, 4, 3},
	{8, 7, 6, 5, 9, 3, 2, 1, 0, 4},
	{9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
}

var verhoeffP = [8][10]int{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	{1, 5, 7, 6, 2, 8, 3, 0, 9, 4},
	{5, 8, 0, 3, 7, 9, 6, 1, 4, 2},
	{8, 9, 1, 6, 0, 4, 3, 5, 2, 7},
	{9, 4, 5, 3, 1, 2, 6, 8, 7, 0},
	{4, 2, 8, 6, 5, 7, 3, 9, 0, 1},
	{2, 7, 9, 3, 8, 0, 6, 4, 1, 5},
	{7, 0, 4, 6, 9, 1, 3, 2, 5, 8},
}

var (
	aadhaarPattern = regexp.MustCompile(`^[0-9]{12}$`)
	panPattern     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	ifscPattern    = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
)

// ValidAadhaarFormat reports whether the value is exactly 12 digits.
func ValidAadhaarFormat(number string) bool {
	return aadhaarPattern.MatchString(number)
}

// ValidPANFormat reports whether the value matches the PAN layout.
func ValidPANFormat(number string) bool {
	return panPattern.MatchString(number)
}

// ValidIFSC reports whether the value matches the IFSC layout.
func ValidIFSC(code string) bool {
	return ifscPattern.MatchString(code)
}

// VerhoeffValid runs the Verhoeff checksum over a digit string,
// consuming digits right to left. Valid iff the running value ends at
// zero. Non-digit input is invalid.
func VerhoeffValid(number string) bool {
	if number == "" {
		return false
	}
	c := 0
	pos := 0
	for i := len(number) - 1; i >= 0; i-- {
		ch := number[i]
		if ch < '0' || ch > '9' {
			return false
		}
		c = verhoeffD[c][verhoeffP[pos%8][ch-'0']]
		pos++
	}
	return c == 0
}

// ValidAadhaar combines the 12-digit format check with the Verhoeff
// checksum.
func ValidAadhaar(number string) bool {
	return ValidAadhaarFormat(number) && VerhoeffValid(number)
}

// MaskAadhaar renders a 12-digit identifier as XXXX-XXXX-<last4> for
// evidence strings. Shorter values are masked entirely.
func MaskAadhaar(number string) string {
	if len(number) < 4 {
		return "XXXX-XXXX-XXXX"
	}
	return "XXXX-XXXX-" + number[len(number)-4:]
}

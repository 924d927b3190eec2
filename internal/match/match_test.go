package match

import "testing"

func TestNormalize(t *testing.T) {
	got := Normalize("  Ravi,  KUMAR-Sharma!! ")
	if got != "ravi kumar sharma" {
		t.Errorf("unexpected normalization: %q", got)
	}
}

func TestNamesMatchDroppedMiddleName(t *testing.T) {
	if !Names("Ravi Kumar Sharma", "Ravi Sharma") {
		t.Error("expected match for dropped middle name")
	}
}

func TestNamesMatchExact(t *testing.T) {
	if !Names("Ravi Sharma", "RAVI SHARMA") {
		t.Error("expected case-insensitive exact match")
	}
}

func TestNamesNoMatch(t *testing.T) {
	if Names("Ravi Kumar Sharma", "Suresh Patel") {
		t.Error("expected no match for different names")
	}
}

func TestNamesEmpty(t *testing.T) {
	if Names("", "Ravi Sharma") {
		t.Error("empty name must never match")
	}
}

func TestAddressesMatchThreshold(t *testing.T) {
	a := "Flat 12, Green Park Apartments, Andheri West, Mumbai"
	b := "12 Green Park Apartments Andheri Mumbai"
	if !Addresses(a, b) {
		t.Error("expected address match at 60%")
	}
}

func TestAddressesNoMatch(t *testing.T) {
	if Addresses("Green Park Apartments Mumbai", "Rose Villa Chennai Tamil Nadu") {
		t.Error("expected no match for unrelated addresses")
	}
}

func TestEmployersIgnoreShortTokens(t *testing.T) {
	if !Employers("Infosys Technologies Pvt Ltd", "Infosys Technologies") {
		t.Error("expected employer match ignoring legal suffixes")
	}
}

func TestEmployersThreeLetterTokensCount(t *testing.T) {
	// Only tokens of length <= 2 are ignored; short brand names like
	// "ibm" still participate in the ratio.
	if !Employers("IBM India Pvt", "IBM India Solutions") {
		t.Error("expected employer match on shared three-letter tokens")
	}
	if Employers("Quick Trading Exports", "Infosys Limited") {
		t.Error("expected no match for unrelated employers")
	}
}

func TestVerhoeffValidAadhaar(t *testing.T) {
	if !VerhoeffValid("234123412346") {
		t.Error("expected valid Verhoeff sequence")
	}
}

func TestVerhoeffSingleDigitFlip(t *testing.T) {
	valid := "234123412346"
	for i := 0; i < len(valid); i++ {
		flipped := []byte(valid)
		flipped[i] = '0' + (flipped[i]-'0'+1)%10
		if VerhoeffValid(string(flipped)) {
			t.Errorf("expected checksum failure for flipped digit at %d", i)
		}
	}
}

func TestVerhoeffNonDigit(t *testing.T) {
	if VerhoeffValid("23412341234x") {
		t.Error("non-digit input must be invalid")
	}
	if VerhoeffValid("") {
		t.Error("empty input must be invalid")
	}
}

func TestValidAadhaarFormat(t *testing.T) {
	if !ValidAadhaarFormat("234123412346") {
		t.Error("12 digits should be valid format")
	}
	if ValidAadhaarFormat("2341234123") {
		t.Error("10 digits should be invalid format")
	}
	if ValidAadhaarFormat("23412341234a") {
		t.Error("letters should be invalid format")
	}
}

func TestValidPANFormat(t *testing.T) {
	if !ValidPANFormat("ABCDE1234F") {
		t.Error("expected valid PAN")
	}
	if ValidPANFormat("AB1DE1234F") {
		t.Error("expected invalid PAN")
	}
	if ValidPANFormat("abcde1234f") {
		t.Error("lowercase PAN should be invalid")
	}
}

func TestValidIFSC(t *testing.T) {
	if !ValidIFSC("HDFC0001234") {
		t.Error("expected valid IFSC")
	}
	if ValidIFSC("HDFC1001234") {
		t.Error("fifth character must be zero")
	}
	if ValidIFSC("HDF0001234") {
		t.Error("expected invalid IFSC length")
	}
}

func TestMaskAadhaar(t *testing.T) {
	if got := MaskAadhaar("234123412346"); got != "XXXX-XXXX-2346" {
		t.Errorf("unexpected mask: %q", got)
	}
	if got := MaskAadhaar("12"); got != "XXXX-XXXX-XXXX" {
		t.Errorf("short input should be fully masked, got %q", got)
	}
}

func TestExtractAmountFirstPatternWins(t *testing.T) {
	text := "Gross Total Income: 9,60,000\nTotal Income: 8,40,000"
	value, ok := ExtractAmount(text, ITRIncomePatterns)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if value != 960000 {
		t.Errorf("expected first pattern's amount 960000, got %.0f", value)
	}
}

func TestExtractAmountMiss(t *testing.T) {
	_, ok := ExtractAmount("no salary information here", PayslipIncomePatterns)
	if ok {
		t.Error("expected miss, not a value")
	}
}

func TestExtractAmountStripsCommas(t *testing.T) {
	value, ok := ExtractAmount("Net Pay: Rs. 45,500", PayslipIncomePatterns)
	if !ok || value != 45500 {
		t.Errorf("expected 45500, got %.0f ok=%v", value, ok)
	}
}

func TestExtractPAN(t *testing.T) {
	pan, ok := ExtractPAN("PAN of assessee: ABCDE1234F for AY 2024-25")
	if !ok || pan != "ABCDE1234F" {
		t.Errorf("expected ABCDE1234F, got %q ok=%v", pan, ok)
	}
}

func TestExtractAadhaarSpaced(t *testing.T) {
	number, ok := ExtractAadhaar("Aadhaar: 2341 2341 2346")
	if !ok || number != "234123412346" {
		t.Errorf("expected 234123412346, got %q ok=%v", number, ok)
	}
}

func TestCountKeywords(t *testing.T) {
	text := "EMI debit 5000; EMI debit 5000; loan installment paid"
	if got := CountKeywords(text, []string{"emi", "installment"}); got != 3 {
		t.Errorf("expected 3 keyword hits, got %d", got)
	}
}

func TestContainsAny(t *testing.T) {
	if !ContainsAny("Cheque bounce due to insufficient funds", []string{"insufficient funds"}) {
		t.Error("expected keyword hit")
	}
	if ContainsAny("all clear", []string{"bounce"}) {
		t.Error("expected no hit")
	}
}

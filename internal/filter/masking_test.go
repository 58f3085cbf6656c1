package filter

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestMasker() *Masker {
	return NewMasker(DefaultRules(), zap.NewNop())
}

func TestMaskKnownFormats(t *testing.T) {
	masker := newTestMasker()

	cases := []struct {
		name string
		in   string
		want string
		kind PIIKind
	}{
		{"mobile phone", "내 번호는 010-1234-5678 이야", "내 번호는 010-****-**** 이야", KindPhoneKR},
		{"landline phone", "사무실: 02-123-4567", "사무실: 02-***-****", KindPhoneKR},
		{"email", "연락처: test@example.com", "연락처: ***@***.***", KindEmail},
		{"resident id", "주민번호 123456-1234567 입니다", "주민번호 ******-******* 입니다", KindResidentID},
		{"credit card dashes", "카드 1234-5678-9012-3456 결제", "카드 ****-****-****-**** 결제", KindCreditCard},
		{"credit card spaces", "1234 5678 9012 3456", "**** **** **** ****", KindCreditCard},
		{"ip address", "서버는 192.168.0.1 입니다", "서버는 ***.***.*.* 입니다", KindIPAddress},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			masked, matches := masker.Mask(tc.in)
			if masked != tc.want {
				t.Errorf("Mask(%q) = %q, want %q", tc.in, masked, tc.want)
			}
			if len(matches) != 1 {
				t.Fatalf("expected 1 match, got %d", len(matches))
			}
			if matches[0].Kind != tc.kind {
				t.Errorf("match kind = %s, want %s", matches[0].Kind, tc.kind)
			}
		})
	}
}

func TestMaskNoPII(t *testing.T) {
	masker := newTestMasker()

	in := "오늘 날씨가 좋네요"
	masked, matches := masker.Mask(in)
	if masked != in {
		t.Errorf("text without PII changed: %q -> %q", in, masked)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
}

func TestMaskPriorityOrdering(t *testing.T) {
	masker := newTestMasker()

	// Digit runs ambiguous between a credit card and phone-like groups must
	// be claimed by the higher-priority credit card rule as one span.
	masked, matches := masker.Mask("1234-5678-9012-3456")
	if masked != "****-****-****-****" {
		t.Errorf("masked = %q, want %q", masked, "****-****-****-****")
	}
	if len(matches) != 1 {
		t.Fatalf("expected exactly 1 match, got %d", len(matches))
	}
	if matches[0].Kind != KindCreditCard {
		t.Errorf("match kind = %s, want %s", matches[0].Kind, KindCreditCard)
	}
}

func TestMaskIdempotent(t *testing.T) {
	masker := newTestMasker()

	inputs := []string{
		"내 번호는 010-1234-5678 이야",
		"연락처: test@example.com",
		"주민번호 123456-1234567",
		"카드 1234-5678-9012-3456, IP 10.0.0.1",
		"PII 없는 평범한 문장",
		"복합: test@example.com 010-1234-5678 192.168.0.1",
	}

	for _, in := range inputs {
		once, _ := masker.Mask(in)
		twice, matches := masker.Mask(once)
		if once != twice {
			t.Errorf("masking not idempotent for %q: %q != %q", in, once, twice)
		}
		if len(matches) != 0 {
			t.Errorf("masked text %q still produced %d matches", once, len(matches))
		}
	}
}

func TestMaskPreservesStructure(t *testing.T) {
	masker := newTestMasker()

	// Every digit becomes '*', every separator survives in place.
	inputs := []string{
		"123456-1234567",
		"1234-5678-9012-3456",
		"172.16.254.1",
	}
	for _, in := range inputs {
		masked, _ := masker.Mask(in)
		if len([]rune(masked)) != len([]rune(in)) {
			t.Errorf("masked %q has different length than %q", masked, in)
		}
		for i, r := range in {
			m := []rune(masked)[i]
			switch {
			case r >= '0' && r <= '9':
				if m != '*' {
					t.Errorf("digit at %d in %q not masked: %q", i, in, masked)
				}
			default:
				if m != r {
					t.Errorf("separator at %d in %q corrupted: %q", i, in, masked)
				}
			}
		}
	}
}

func TestMaskRuneOffsets(t *testing.T) {
	masker := newTestMasker()

	in := "내 번호는 010-1234-5678 이야"
	_, matches := masker.Mask(in)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.Start != 6 || m.End != 19 {
		t.Errorf("rune span = [%d, %d), want [6, 19)", m.Start, m.End)
	}
	if got := string([]rune(in)[m.Start:m.End]); got != "010-1234-5678" {
		t.Errorf("span does not cover the match: %q", got)
	}
}

func TestMaskNeverLeaksOriginal(t *testing.T) {
	masker := newTestMasker()

	secrets := []string{"010-1234-5678", "test@example.com", "123456-1234567", "1234-5678-9012-3456"}
	in := "전화 010-1234-5678 메일 test@example.com 주민 123456-1234567 카드 1234-5678-9012-3456"

	masked, matches := masker.Mask(in)
	for _, secret := range secrets {
		if strings.Contains(masked, secret) {
			t.Errorf("masked text still contains %q", secret)
		}
	}
	for _, m := range matches {
		if strings.Contains(m.MaskedValue, "1234") {
			t.Errorf("match carries original digits: %q", m.MaskedValue)
		}
	}
	if len(matches) != 4 {
		t.Errorf("expected 4 matches, got %d", len(matches))
	}
}

func TestMaskInvalidIPIgnored(t *testing.T) {
	masker := newTestMasker()

	in := "버전 표기 999.999.999.999 는 IP가 아님"
	masked, matches := masker.Mask(in)
	if masked != in {
		t.Errorf("out-of-range octets masked: %q", masked)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
}

func TestMaskMultipleOfSameKind(t *testing.T) {
	masker := newTestMasker()

	masked, matches := masker.Mask("a@b.com 그리고 c@d.org")
	if masked != "***@***.*** 그리고 ***@***.***" {
		t.Errorf("masked = %q", masked)
	}
	if len(matches) != 2 {
		t.Errorf("expected 2 matches, got %d", len(matches))
	}
}

package sanitize

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"image", "see ![[map.png]] here", "see ![image] here"},
		{"aliased link", "met [[People/Anna Smith|Anna]] today", "met Anna today"},
		{"plain link", "read [[Reading List]]", "read Reading List"},
		{"external link", "docs at [Go](https://go.dev/doc)", "docs at Go"},
		{"comment", "keep %%hidden note%%this", "keep this"},
		{"mixed", "[[A|b]] and [c](d) %%x%%", "b and c "},
		{"untouched", "plain [text] only", "plain [text] only"},
	}
	n := NewMarkdownNormalizer()
	for _, tc := range cases {
		if got := n.Normalize(tc.in); got != tc.want {
			t.Fatalf("%s: Normalize(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := NewMarkdownNormalizer()
	in := "![[x.png]] [[a|b]] [[c]] [d](e) %%f%%"
	once := n.Normalize(in)
	if twice := n.Normalize(once); twice != once {
		t.Fatalf("expected idempotent output, got %q then %q", once, twice)
	}
}

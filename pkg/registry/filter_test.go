package registry

import (
	"errors"
	"testing"

	"github.com/vnykmshr/liveflow/internal/testutil"
	errs "github.com/vnykmshr/liveflow/pkg/common/errors"
)

func TestFilterMatching(t *testing.T) {
	props := map[string]string{
		"type":   "cache",
		"region": "eu-west-1",
		"tier":   "hot",
	}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"equality", "(type=cache)", true},
		{"equality miss", "(type=queue)", false},
		{"missing key", "(owner=ops)", false},
		{"presence", "(region=*)", true},
		{"presence miss", "(owner=*)", false},
		{"prefix wildcard", "(region=eu-*)", true},
		{"suffix wildcard", "(region=*-1)", true},
		{"inner wildcard", "(region=eu*west*1)", true},
		{"wildcard miss", "(region=us-*)", false},
		{"and", "(&(type=cache)(tier=hot))", true},
		{"and miss", "(&(type=cache)(tier=cold))", false},
		{"or", "(|(type=queue)(tier=hot))", true},
		{"or miss", "(|(type=queue)(tier=cold))", false},
		{"not", "(!(type=queue))", true},
		{"not miss", "(!(type=cache))", false},
		{"nested", "(&(type=cache)(|(region=eu-*)(region=us-*)))", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.expr)
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, f.Matches(props), tt.want)
		})
	}
}

func TestFilterParseErrors(t *testing.T) {
	exprs := []string{
		"",
		"type=cache",
		"(type=cache",
		"(type=cache))",
		"(=cache)",
		"(&)",
		"(|)",
		"(!)",
		"(type)",
	}
	for _, expr := range exprs {
		_, err := ParseFilter(expr)
		testutil.AssertError(t, err)
		testutil.AssertEqual(t, errors.Is(err, errs.ErrInvalidFilter), true)
	}
}

func TestFilterZeroValueMatchesNothing(t *testing.T) {
	var f Filter
	testutil.AssertEqual(t, f.Matches(map[string]string{"a": "b"}), false)
}

func TestFilterString(t *testing.T) {
	f := MustFilter("(type=cache)")
	testutil.AssertEqual(t, f.String(), "(type=cache)")
}

func TestMustFilterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustFilter("(broken")
}

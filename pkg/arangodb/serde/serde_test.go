package serde

import (
	"math"
	"testing"

	"github.com/matryer/is"
)

type address struct {
	Street string `json:"street"`
	Number int    `json:"number"`
}

type person struct {
	Key      string            `json:"_key,omitempty"`
	Name     string            `json:"name"`
	Age      int               `json:"age"`
	Small    int8              `json:"small"`
	Medium   int32             `json:"medium"`
	Big      int64             `json:"big"`
	Unsigned uint64            `json:"unsigned"`
	Ratio    float64           `json:"ratio"`
	Active   bool              `json:"active"`
	Tags     []string          `json:"tags"`
	Scores   map[string]int    `json:"scores"`
	Home     *address          `json:"home,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
}

func testPerson() person {
	return person{
		Key:      "p1",
		Name:     "Alice",
		Age:      42,
		Small:    -12,
		Medium:   -70000,
		Big:      math.MaxInt64,
		Unsigned: 1 << 40,
		Ratio:    -3.25,
		Active:   true,
		Tags:     []string{"a", "b"},
		Scores:   map[string]int{"x": 1, "y": -2},
		Home:     &address{Street: "Storgatan", Number: 7},
	}
}

func TestRoundTripStructs(t *testing.T) {
	for _, codec := range []Serde{JSON(), VPack()} {
		t.Run(codec.ContentType(), func(t *testing.T) {
			is := is.New(t)

			expected := testPerson()

			b, err := codec.Marshal(expected)
			is.NoErr(err)

			actual := person{}
			is.NoErr(codec.Unmarshal(b, &actual))

			is.Equal(actual.Key, expected.Key)
			is.Equal(actual.Name, expected.Name)
			is.Equal(actual.Age, expected.Age)
			is.Equal(actual.Small, expected.Small)
			is.Equal(actual.Medium, expected.Medium)
			is.Equal(actual.Big, expected.Big)
			is.Equal(actual.Unsigned, expected.Unsigned)
			is.Equal(actual.Ratio, expected.Ratio)
			is.Equal(actual.Active, expected.Active)
			is.Equal(actual.Tags, expected.Tags)
			is.Equal(actual.Scores, expected.Scores)
			is.Equal(*actual.Home, *expected.Home)
			is.True(actual.Labels == nil) // omitted map should stay nil
		})
	}
}

func TestRoundTripPrimitives(t *testing.T) {
	for _, codec := range []Serde{JSON(), VPack()} {
		t.Run(codec.ContentType(), func(t *testing.T) {
			is := is.New(t)

			for _, expected := range []int64{0, 1, -1, 127, -128, 1000, -100000, math.MinInt32, math.MaxInt32} {
				b, err := codec.Marshal(expected)
				is.NoErr(err)

				var actual int64
				is.NoErr(codec.Unmarshal(b, &actual))
				is.Equal(actual, expected)
			}

			b, err := codec.Marshal("hello")
			is.NoErr(err)
			var s string
			is.NoErr(codec.Unmarshal(b, &s))
			is.Equal(s, "hello")

			b, err = codec.Marshal(false)
			is.NoErr(err)
			truth := true
			is.NoErr(codec.Unmarshal(b, &truth))
			is.Equal(truth, false)
		})
	}
}

func TestNarrowingNumericDecode(t *testing.T) {
	for _, codec := range []Serde{JSON(), VPack()} {
		t.Run(codec.ContentType(), func(t *testing.T) {
			is := is.New(t)

			b, err := codec.Marshal(int64(-42))
			is.NoErr(err)

			var i int
			is.NoErr(codec.Unmarshal(b, &i))
			is.Equal(i, -42)

			var i16 int16
			is.NoErr(codec.Unmarshal(b, &i16))
			is.Equal(i16, int16(-42))
		})
	}
}

func TestFieldReturnsRawAttribute(t *testing.T) {
	for _, codec := range []Serde{JSON(), VPack()} {
		t.Run(codec.ContentType(), func(t *testing.T) {
			is := is.New(t)

			b, err := codec.Marshal(map[string]any{
				"_key": "abc",
				"new":  map[string]any{"name": "Bob"},
			})
			is.NoErr(err)

			raw, err := codec.Field(b, "new")
			is.NoErr(err)
			is.True(raw != nil) // attribute should be found

			p := person{}
			is.NoErr(codec.Unmarshal(raw, &p))
			is.Equal(p.Name, "Bob")

			missing, err := codec.Field(b, "old")
			is.NoErr(err)
			is.True(missing == nil) // absent attribute should yield nil
		})
	}
}

func TestElementsSplitsArray(t *testing.T) {
	for _, codec := range []Serde{JSON(), VPack()} {
		t.Run(codec.ContentType(), func(t *testing.T) {
			is := is.New(t)

			b, err := codec.Marshal([]address{{"a", 1}, {"b", 2}, {"c", 3}})
			is.NoErr(err)

			elements, err := codec.Elements(b)
			is.NoErr(err)
			is.Equal(len(elements), 3)

			last := address{}
			is.NoErr(codec.Unmarshal(elements[2], &last))
			is.Equal(last, address{"c", 3})
		})
	}
}

func TestForContentType(t *testing.T) {
	is := is.New(t)

	is.Equal(ForContentType("application/x-velocypack", JSON()).ContentType(), ContentTypeVPack)
	is.Equal(ForContentType("application/json; charset=utf-8", VPack()).ContentType(), ContentTypeJSON)
	is.Equal(ForContentType("", VPack()).ContentType(), ContentTypeVPack)
	is.Equal(ForContentType("text/plain", nil).ContentType(), ContentTypeJSON)
}

func TestSizeOfVPackValue(t *testing.T) {
	is := is.New(t)

	header, err := VPack().Marshal([]any{1, 2, "three"})
	is.NoErr(err)
	body, err := VPack().Marshal(map[string]string{"a": "b"})
	is.NoErr(err)

	size, err := Size(append(append([]byte{}, header...), body...))
	is.NoErr(err)
	is.Equal(size, len(header))
}

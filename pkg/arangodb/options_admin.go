package arangodb

import (
	"net/url"
	"strconv"
)

type LogSortOrder string

const (
	LogSortAscending  LogSortOrder = "asc"
	LogSortDescending LogSortOrder = "desc"
)

// LogOptions filters the server log. Upto and Level are mutually exclusive, Upto returns all
// entries up to and including the given level.
type LogOptions struct {
	Upto   LogLevel
	Level  LogLevel
	Start  int64
	Size   int
	Offset int
	Search string
	Sort   LogSortOrder
}

func (o *LogOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}

	setString(q, "upto", string(o.Upto))
	setString(q, "level", string(o.Level))
	if o.Start > 0 {
		q.Set("start", strconv.FormatInt(o.Start, 10))
	}
	setInt(q, "size", o.Size)
	setInt(q, "offset", o.Offset)
	setString(q, "search", o.Search)
	setString(q, "sort", string(o.Sort))

	return q
}

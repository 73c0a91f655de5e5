package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the stored domain types. Field order is
// part of the on-disk format; append new fields at the end only.

var (
	// IDMUS serializes ID values.
	IDMUS = idMUS{}
	// KindMUS serializes Kind values.
	KindMUS = kindMUS{}
	// SnippetMUS serializes Snippet values.
	SnippetMUS = snippetMUS{}

	vectorMUS   = ord.NewSliceSer[float32](varint.Float32)
	metadataMUS = ord.NewMapSer[string, string](ord.String, ord.String)
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

type kindMUS struct{}

func (kindMUS) Marshal(v Kind, bs []byte) int {
	return varint.Int.Marshal(int(v), bs)
}

func (kindMUS) Unmarshal(bs []byte) (Kind, int, error) {
	v, n, err := varint.Int.Unmarshal(bs)
	return Kind(v), n, err
}

func (kindMUS) Size(v Kind) int {
	return varint.Int.Size(int(v))
}

func (kindMUS) Skip(bs []byte) (int, error) {
	return varint.Int.Skip(bs)
}

type snippetMUS struct{}

func (snippetMUS) Marshal(v Snippet, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Text, bs[n:])
	n += ord.String.Marshal(v.Dataset, bs[n:])
	n += KindMUS.Marshal(v.Kind, bs[n:])
	n += vectorMUS.Marshal(v.Vector, bs[n:])
	n += ord.Bool.Marshal(v.Indexed, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.Timestamp, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.InsertedAt, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.UpdatedAt, bs[n:])
	n += metadataMUS.Marshal(v.Metadata, bs[n:])
	return n
}

func (snippetMUS) Unmarshal(bs []byte) (v Snippet, n int, err error) {
	var n1 int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Dataset, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Kind, n1, err = KindMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Vector, n1, err = vectorMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Indexed, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Timestamp, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.InsertedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.UpdatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Metadata, n1, err = metadataMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (snippetMUS) Size(v Snippet) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Text)
	size += ord.String.Size(v.Dataset)
	size += KindMUS.Size(v.Kind)
	size += vectorMUS.Size(v.Vector)
	size += ord.Bool.Size(v.Indexed)
	size += raw.TimeUnixMicro.Size(v.Timestamp)
	size += raw.TimeUnixMicro.Size(v.InsertedAt)
	size += raw.TimeUnixMicro.Size(v.UpdatedAt)
	size += metadataMUS.Size(v.Metadata)
	return size
}

// normalizeTime keeps round-tripped timestamps comparable: MUS stores
// microsecond precision in UTC.
func normalizeTime(t time.Time) time.Time {
	return t.Truncate(time.Microsecond).UTC()
}

// NormalizeSnippetTimes truncates the snippet's timestamps to the
// precision preserved by serialization. Called by the storage layer
// before marshalling so reads compare equal to writes.
func NormalizeSnippetTimes(v *Snippet) {
	v.Timestamp = normalizeTime(v.Timestamp)
	v.InsertedAt = normalizeTime(v.InsertedAt)
	v.UpdatedAt = normalizeTime(v.UpdatedAt)
}

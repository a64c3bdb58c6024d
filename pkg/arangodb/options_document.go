package arangodb

import (
	"net/url"
)

type OverwriteMode string

const (
	OverwriteModeIgnore   OverwriteMode = "ignore"
	OverwriteModeReplace  OverwriteMode = "replace"
	OverwriteModeUpdate   OverwriteMode = "update"
	OverwriteModeConflict OverwriteMode = "conflict"
)

// DocumentCreateOptions controls inserts. NewObject and OldObject are optional decode targets
// for the document as stored after and before the operation, setting them implies ReturnNew
// and ReturnOld. For multi document inserts they must point to slices.
type DocumentCreateOptions struct {
	WaitForSync         bool
	ReturnNew           bool
	ReturnOld           bool
	Overwrite           bool
	OverwriteMode       OverwriteMode
	Silent              bool
	KeepNull            *bool
	MergeObjects        *bool
	RefillIndexCaches   bool
	StreamTransactionID string

	NewObject any
	OldObject any
}

func (o *DocumentCreateOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}

	setBool(q, "waitForSync", o.WaitForSync)
	setBool(q, "returnNew", o.ReturnNew || o.NewObject != nil)
	setBool(q, "returnOld", o.ReturnOld || o.OldObject != nil)
	setBool(q, "overwrite", o.Overwrite)
	setString(q, "overwriteMode", string(o.OverwriteMode))
	setBool(q, "silent", o.Silent)
	setOptionalBool(q, "keepNull", o.KeepNull)
	setOptionalBool(q, "mergeObjects", o.MergeObjects)
	setBool(q, "refillIndexCaches", o.RefillIndexCaches)

	return q
}

func (o *DocumentCreateOptions) Headers() map[string]string {
	if o == nil {
		return map[string]string{}
	}
	return headers(HeaderStreamTransactionID, o.StreamTransactionID)
}

type DocumentReadOptions struct {
	IfNoneMatch         string
	IfMatch             string
	AllowDirtyRead      bool
	StreamTransactionID string
	// IgnoreRevs applies to multi document reads, when false the _rev of each selector must match
	IgnoreRevs *bool
}

func (o *DocumentReadOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	setOptionalBool(q, "ignoreRevs", o.IgnoreRevs)
	return q
}

func (o *DocumentReadOptions) Headers() map[string]string {
	if o == nil {
		return map[string]string{}
	}

	h := headers(
		HeaderIfNoneMatch, o.IfNoneMatch,
		HeaderIfMatch, o.IfMatch,
		HeaderStreamTransactionID, o.StreamTransactionID,
	)
	if o.AllowDirtyRead {
		h[HeaderAllowDirtyRead] = "true"
	}

	return h
}

type DocumentReplaceOptions struct {
	WaitForSync         bool
	IgnoreRevs          *bool
	IfMatch             string
	ReturnNew           bool
	ReturnOld           bool
	Silent              bool
	RefillIndexCaches   bool
	StreamTransactionID string

	NewObject any
	OldObject any
}

func (o *DocumentReplaceOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}

	setBool(q, "waitForSync", o.WaitForSync)
	setOptionalBool(q, "ignoreRevs", o.IgnoreRevs)
	setBool(q, "returnNew", o.ReturnNew || o.NewObject != nil)
	setBool(q, "returnOld", o.ReturnOld || o.OldObject != nil)
	setBool(q, "silent", o.Silent)
	setBool(q, "refillIndexCaches", o.RefillIndexCaches)

	return q
}

func (o *DocumentReplaceOptions) Headers() map[string]string {
	if o == nil {
		return map[string]string{}
	}
	return headers(HeaderIfMatch, o.IfMatch, HeaderStreamTransactionID, o.StreamTransactionID)
}

type DocumentUpdateOptions struct {
	WaitForSync         bool
	IgnoreRevs          *bool
	IfMatch             string
	KeepNull            *bool
	MergeObjects        *bool
	ReturnNew           bool
	ReturnOld           bool
	Silent              bool
	RefillIndexCaches   bool
	StreamTransactionID string

	NewObject any
	OldObject any
}

func (o *DocumentUpdateOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}

	setBool(q, "waitForSync", o.WaitForSync)
	setOptionalBool(q, "ignoreRevs", o.IgnoreRevs)
	setOptionalBool(q, "keepNull", o.KeepNull)
	setOptionalBool(q, "mergeObjects", o.MergeObjects)
	setBool(q, "returnNew", o.ReturnNew || o.NewObject != nil)
	setBool(q, "returnOld", o.ReturnOld || o.OldObject != nil)
	setBool(q, "silent", o.Silent)
	setBool(q, "refillIndexCaches", o.RefillIndexCaches)

	return q
}

func (o *DocumentUpdateOptions) Headers() map[string]string {
	if o == nil {
		return map[string]string{}
	}
	return headers(HeaderIfMatch, o.IfMatch, HeaderStreamTransactionID, o.StreamTransactionID)
}

type DocumentDeleteOptions struct {
	WaitForSync         bool
	IgnoreRevs          *bool
	IfMatch             string
	ReturnOld           bool
	Silent              bool
	RefillIndexCaches   bool
	StreamTransactionID string

	OldObject any
}

func (o *DocumentDeleteOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}

	setBool(q, "waitForSync", o.WaitForSync)
	setOptionalBool(q, "ignoreRevs", o.IgnoreRevs)
	setBool(q, "returnOld", o.ReturnOld || o.OldObject != nil)
	setBool(q, "silent", o.Silent)
	setBool(q, "refillIndexCaches", o.RefillIndexCaches)

	return q
}

func (o *DocumentDeleteOptions) Headers() map[string]string {
	if o == nil {
		return map[string]string{}
	}
	return headers(HeaderIfMatch, o.IfMatch, HeaderStreamTransactionID, o.StreamTransactionID)
}

type DocumentExistsOptions struct {
	IfNoneMatch         string
	IfMatch             string
	AllowDirtyRead      bool
	StreamTransactionID string
}

func (o *DocumentExistsOptions) Headers() map[string]string {
	if o == nil {
		return map[string]string{}
	}

	h := headers(
		HeaderIfNoneMatch, o.IfNoneMatch,
		HeaderIfMatch, o.IfMatch,
		HeaderStreamTransactionID, o.StreamTransactionID,
	)
	if o.AllowDirtyRead {
		h[HeaderAllowDirtyRead] = "true"
	}

	return h
}

type OnDuplicate string

const (
	OnDuplicateError   OnDuplicate = "error"
	OnDuplicateUpdate  OnDuplicate = "update"
	OnDuplicateReplace OnDuplicate = "replace"
	OnDuplicateIgnore  OnDuplicate = "ignore"
)

type DocumentImportOptions struct {
	FromPrefix  string
	ToPrefix    string
	Overwrite   bool
	WaitForSync bool
	OnDuplicate OnDuplicate
	Complete    bool
	Details     bool
}

func (o *DocumentImportOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}

	setString(q, "fromPrefix", o.FromPrefix)
	setString(q, "toPrefix", o.ToPrefix)
	setBool(q, "overwrite", o.Overwrite)
	setBool(q, "waitForSync", o.WaitForSync)
	setString(q, "onDuplicate", string(o.OnDuplicate))
	setBool(q, "complete", o.Complete)
	setBool(q, "details", o.Details)

	return q
}

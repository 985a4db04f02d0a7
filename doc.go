// Package mpstream encodes multipart/form-data bodies (RFC 7578) as a
// stream.
//
// Fields are collected in a FieldSet and turned into a Body by Prepare. Text
// fields are rendered up front; stream fields such as file uploads are only
// read as the Body is read, so a Body can be handed directly to an HTTP
// client without buffering the payloads:
//
//	var fs mpstream.FieldSet
//	fs.AddText("title", "holiday")
//	fs.AddStream("photo", f, mpstream.Filename("beach.jpg"), mpstream.ContentType("image/jpeg"))
//	body := fs.Prepare()
//	defer body.Close()
//	req, err := mpstream.NewRequest(ctx, http.MethodPost, url, body)
//
// Every part carries a Content-Disposition of form-data with the field
// name. Stream parts add a filename when one is given and always carry a
// Content-Type, defaulting to application/octet-stream. Text parts carry no
// other headers. Text fields are emitted before stream fields.
package mpstream

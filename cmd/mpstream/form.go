package main

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/heyimalex/mpstream"
	"github.com/heyimalex/mpstream/internal/source"
)

// formSpec is one -F argument: name=value, or name=@ref[;type=...][;filename=...].
type formSpec struct {
	name        string
	value       string
	ref         string
	isStream    bool
	contentType string
	filename    string
	hasFilename bool
}

func parseFormSpec(s string) (formSpec, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return formSpec{}, fmt.Errorf("invalid form field %q: want name=value or name=@file", s)
	}
	spec := formSpec{name: name}
	if !strings.HasPrefix(value, "@") {
		spec.value = value
		return spec, nil
	}

	params := strings.Split(value[1:], ";")
	spec.isStream = true
	spec.ref = params[0]
	if spec.ref == "" {
		return formSpec{}, fmt.Errorf("invalid form field %q: missing file after @", s)
	}
	for _, p := range params[1:] {
		k, v, _ := strings.Cut(p, "=")
		switch strings.TrimSpace(k) {
		case "type":
			spec.contentType = v
		case "filename":
			spec.filename = v
			spec.hasFilename = true
		default:
			return formSpec{}, fmt.Errorf("invalid form field %q: unknown parameter %q", s, k)
		}
	}
	return spec, nil
}

// fieldArg is one -F or --json occurrence. Both flags append to the same
// list so fields keep their command-line order.
type fieldArg struct {
	value  string
	isJSON bool
}

type fieldFlag struct {
	args   *[]fieldArg
	isJSON bool
}

func (f fieldFlag) String() string { return "" }

func (f fieldFlag) Type() string { return "stringArray" }

func (f fieldFlag) Set(v string) error {
	*f.args = append(*f.args, fieldArg{value: v, isJSON: f.isJSON})
	return nil
}

func parseJSONSpec(s string) (name, value string, err error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid json field %q: want name=<json>", s)
	}
	if !jsoniter.ConfigCompatibleWithStandardLibrary.Valid([]byte(value)) {
		return "", "", fmt.Errorf("invalid json field %q: value is not valid JSON", name)
	}
	return name, value, nil
}

// addSpecs adds every field to fs in order, opening stream payloads through
// res. On error the payloads opened so far are closed.
func addSpecs(ctx context.Context, fs *mpstream.FieldSet, res *source.Resolver, args []fieldArg) (err error) {
	defer func() {
		if err != nil {
			fs.Prepare().Close()
		}
	}()

	for _, arg := range args {
		if arg.isJSON {
			name, value, err := parseJSONSpec(arg.value)
			if err != nil {
				return err
			}
			fs.AddText(name, value)
			continue
		}

		spec, err := parseFormSpec(arg.value)
		if err != nil {
			return err
		}
		if !spec.isStream {
			fs.AddText(spec.name, spec.value)
			continue
		}

		payload, err := res.Open(ctx, spec.ref)
		if err != nil {
			return fmt.Errorf("field %q: %w", spec.name, err)
		}
		var opts []mpstream.StreamOption
		switch {
		case spec.hasFilename:
			opts = append(opts, mpstream.Filename(spec.filename))
		case payload.Filename != "":
			opts = append(opts, mpstream.Filename(payload.Filename))
		}
		switch {
		case spec.contentType != "":
			opts = append(opts, mpstream.ContentType(spec.contentType))
		case payload.ContentType != "":
			opts = append(opts, mpstream.ContentType(payload.ContentType))
		}
		if payload.Size >= 0 {
			opts = append(opts, mpstream.Size(payload.Size))
		}
		fs.AddStream(spec.name, payload.Body, opts...)
	}
	return nil
}

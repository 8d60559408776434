package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

// SonicSerializer encodes echo responses with sonic.
type SonicSerializer struct{}

func (SonicSerializer) Serialize(c echo.Context, i any, indent string) error {
	var (
		b   []byte
		err error
	)
	if indent != "" {
		b, err = sonic.ConfigStd.MarshalIndent(i, "", indent)
	} else {
		b, err = sonic.ConfigStd.Marshal(i)
	}
	if err != nil {
		return err
	}
	_, err = c.Response().Write(b)
	return err
}

func (SonicSerializer) Deserialize(c echo.Context, i any) error {
	if err := decodeStrict(c.Request().Body, i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err)).SetInternal(err)
	}
	return nil
}

// decodeStrict decodes a bounded JSON body and rejects unknown fields.
func decodeStrict(r io.Reader, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(r, maxBodySize))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

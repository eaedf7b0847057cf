package param

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/twitchtv/twirp"
)

const maxBodySize = 1 << 20

// Binding decodes the json body of r into v and validates it
func Binding(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return twirp.NewError(twirp.Malformed, err.Error())
	}

	if _, err := govalidator.ValidateStruct(v); err != nil {
		return twirp.NewError(twirp.InvalidArgument, err.Error())
	}

	return nil
}

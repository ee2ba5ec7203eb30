package utils

type ResponseData struct {
	Status  int         `json:"status"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Results interface{} `json:"results,omitempty"`
}

// PanicIfNeeded panics on non-nil error so the recovery middleware can turn
// typed errors into their HTTP representation.
func PanicIfNeeded(err interface{}) {
	if err != nil {
		panic(err)
	}
}

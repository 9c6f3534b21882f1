package daemon

import (
	"encoding/json"
	"errors"
	"log/slog"
)

const (
	StatusInfo  = "INFO"
	StatusWarn  = "WARN"
	StatusError = "ERROR"
)

type Response struct {
	Messages []ResponseMessage `json:"messages"`
	Data     json.RawMessage   `json:"data,omitempty"`
}

type ResponseMessage struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (r *Response) AddMessage(message string, status string) {
	r.Messages = append(r.Messages, ResponseMessage{
		Message: message,
		Status:  status,
	})
}

// AddData attaches data to the response as JSON.
func (r *Response) AddData(data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		r.AddMessage("Failed to encode response data: "+err.Error(), StatusError)
		return
	}
	r.Data = raw
}

// DecodeData unmarshals the response data into v.
func (r *Response) DecodeData(v interface{}) error {
	if len(r.Data) == 0 {
		return errors.New("response carries no data")
	}
	return json.Unmarshal(r.Data, v)
}

// Err returns the first ERROR message as an error, or nil.
func (r *Response) Err() error {
	for _, m := range r.Messages {
		if m.Status == StatusError {
			return errors.New(m.Message)
		}
	}
	return nil
}

func (r *Response) ToJSON() string {
	bytes, err := json.Marshal(r)
	if err != nil {
		panic(err)
	}
	return string(bytes)
}

func (r *Response) LogMessages() {
	for _, message := range r.Messages {
		switch message.Status {
		case StatusWarn:
			slog.Warn(message.Message)
		case StatusError:
			slog.Error(message.Message)
		default:
			slog.Info(message.Message)
		}
	}
}

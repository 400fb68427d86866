package client

import (
	"github.com/keboola/go-multiclient/pkg/client/header"
)

// rawResult is the terminal state of one transfer, before it is demultiplexed.
type rawResult struct {
	id         string
	statusCode int
	// raw contains the header blocks, if captured, followed by the body, if captured.
	raw             []byte
	headerSize      int
	headersCaptured bool
	bodyCaptured    bool
	err             *TransportError
	info            Info
}

// demultiplex splits the raw result to the Response.
func (r *rawResult) demultiplex() *Response {
	res := &Response{id: r.id, statusCode: r.statusCode, err: r.err, info: r.info}
	if r.headersCaptured {
		res.headers, res.body = header.Split(r.raw, r.headerSize)
	} else {
		res.headers, res.body = header.NewMap(), r.raw
	}
	if !r.bodyCaptured {
		res.body = nil
	} else if res.body == nil {
		res.body = []byte{}
	}
	return res
}

// store keeps the last Response of each handle.
type store struct {
	responses map[string]*Response
}

func newStore() *store {
	return &store{responses: make(map[string]*Response)}
}

func (s *store) set(res *Response) {
	s.responses[res.id] = res
}

// get returns an empty Response if the handle has not been executed yet.
func (s *store) get(id string) *Response {
	if res, found := s.responses[id]; found {
		return res
	}
	return emptyResponse(id)
}

func (s *store) clear() {
	s.responses = make(map[string]*Response)
}

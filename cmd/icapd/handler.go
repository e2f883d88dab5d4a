package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/icap-oss/icapd/child"
	"github.com/icap-oss/icapd/queue"
)

// icapRequest is the child.Request the acceptor/worker pipeline recycles
// across keep-alive requests on one connection. Its only state is the
// buffered reader wrapping the connection, reused as long as Reset
// succeeds.
type icapRequest struct {
	r *bufio.Reader
}

func newICAPRequest() child.Request {
	return &icapRequest{}
}

func (q *icapRequest) Reset() bool {
	return true
}

// serveICAP answers the request/worker contract the pipeline delegates
// to: read one ICAP request's header block and respond. Full REQMOD/
// RESPMOD body adaptation is the out-of-scope request processor; this
// handles exactly the one request type a bare ICAP listener must answer
// correctly to be distinguishable from a dead service: OPTIONS, which
// every client probes before sending real traffic. Anything else gets a
// courteous 501 rather than silently hanging up.
func serveICAP(conn *queue.Connection, reqv child.Request) (keepAlive bool, err error) {
	req, ok := reqv.(*icapRequest)
	if !ok {
		return false, fmt.Errorf("unexpected request type %T", reqv)
	}
	if req.r == nil {
		req.r = bufio.NewReader(conn.Conn)
	} else {
		req.r.Reset(conn.Conn)
	}

	line, err := req.r.ReadString('\n')
	if err != nil {
		return false, err
	}
	if err := drainHeaders(req.r); err != nil {
		return false, err
	}

	method := strings.Fields(line)
	status := "501 Not Implemented"
	if len(method) > 0 && strings.EqualFold(method[0], "OPTIONS") {
		status = "200 OK"
	}

	resp := "ICAP/1.0 " + status + "\r\n" +
		"Methods: OPTIONS\r\n" +
		"Allow: OPTIONS\r\n" +
		"Preview: 0\r\n" +
		"Connection: close\r\n" +
		"\r\n"

	if _, err := conn.Conn.Write([]byte(resp)); err != nil {
		return false, err
	}
	return false, nil
}

func drainHeaders(r *bufio.Reader) error {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return err
		}
		if strings.TrimRight(line, "\r\n") == "" {
			return nil
		}
	}
}

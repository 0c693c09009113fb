// Package comettest is a scripted comet server for tests.
// Content and count requests are held until a reply is pushed, like a long-poll server.
package comettest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
)

const CountPath = "/var/seq"
const PostPath = "/chaton-poster"

type ContentBody struct {
	Version   string `json:"ver"`
	UserCount int    `json:"nc"`
	Position  int64  `json:"pos"`
	Refresh   bool   `json:"refresh"`
	Text      string `json:"text"`
}

// a non-zero `StatusCode` other than 200 replies with `Raw` as the error message
type ContentReply struct {
	StatusCode int
	Body       *ContentBody
	// used instead of `Body` when set
	Raw string
}

type CountReply struct {
	StatusCode int
	Raw        string
}

func Count(count int64) CountReply {
	return CountReply{
		Raw: strconv.FormatInt(count, 10),
	}
}

type ContentRequest struct {
	RequestTag string
	Position   int64
	InstanceId string
}

type Server struct {
	server *httptest.Server

	stateLock       sync.Mutex
	contentRequests []ContentRequest
	countRequests   int
	posts           []url.Values
	postStatusCode  int

	contentReplies chan ContentReply
	countReplies   chan CountReply
	contentArrived chan ContentRequest
	closed         chan struct{}
	closeOnce      sync.Once
}

func NewServer() *Server {
	server := &Server{
		postStatusCode: http.StatusOK,
		contentReplies: make(chan ContentReply, 64),
		countReplies:   make(chan CountReply, 64),
		contentArrived: make(chan ContentRequest, 64),
		closed:         make(chan struct{}),
	}

	router := chi.NewRouter()
	router.Get("/", server.handleContent)
	router.Get(CountPath, server.handleCount)
	router.Post(PostPath, server.handlePost)

	server.server = httptest.NewServer(router)
	return server
}

func (self *Server) Url() string {
	return self.server.URL + "/"
}

func (self *Server) CountUrl() string {
	return self.server.URL + CountPath
}

func (self *Server) PostUrl() string {
	return self.server.URL + PostPath
}

func (self *Server) PushContent(reply ContentReply) {
	self.contentReplies <- reply
}

func (self *Server) PushCount(reply CountReply) {
	self.countReplies <- reply
}

func (self *Server) SetPostStatusCode(statusCode int) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	self.postStatusCode = statusCode
}

// each content request as it arrives, before it is answered
func (self *Server) ContentArrived() <-chan ContentRequest {
	return self.contentArrived
}

func (self *Server) ContentRequests() []ContentRequest {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return append([]ContentRequest{}, self.contentRequests...)
}

func (self *Server) CountRequests() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.countRequests
}

func (self *Server) Posts() []url.Values {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return append([]url.Values{}, self.posts...)
}

// stops answering without closing the listener, so held requests fail in transport
func (self *Server) CloseClientConnections() {
	self.server.CloseClientConnections()
}

func (self *Server) Close() {
	self.closeOnce.Do(func() {
		close(self.closed)
	})
	self.server.Close()
}

func (self *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.ParseInt(r.URL.Query().Get("p"), 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("bad position: %s", err), http.StatusBadRequest)
		return
	}
	request := ContentRequest{
		RequestTag: r.URL.Query().Get("t"),
		Position:   position,
		InstanceId: r.Header.Get("X-Chaton-Instance"),
	}
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		self.contentRequests = append(self.contentRequests, request)
	}()
	select {
	case self.contentArrived <- request:
	default:
	}

	select {
	case <-self.closed:
		http.Error(w, "closed", http.StatusServiceUnavailable)
	case <-r.Context().Done():
	case reply := <-self.contentReplies:
		if reply.StatusCode != 0 && reply.StatusCode != http.StatusOK {
			http.Error(w, reply.Raw, reply.StatusCode)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if reply.Body != nil && reply.Raw == "" {
			json.NewEncoder(w).Encode(reply.Body)
		} else {
			w.Write([]byte(reply.Raw))
		}
	}
}

func (self *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		self.countRequests += 1
	}()

	select {
	case <-self.closed:
		http.Error(w, "closed", http.StatusServiceUnavailable)
	case <-r.Context().Done():
	case reply := <-self.countReplies:
		if reply.StatusCode != 0 && reply.StatusCode != http.StatusOK {
			http.Error(w, reply.Raw, reply.StatusCode)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(reply.Raw))
	}
}

func (self *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	self.stateLock.Lock()
	self.posts = append(self.posts, r.PostForm)
	statusCode := self.postStatusCode
	self.stateLock.Unlock()

	if statusCode != http.StatusOK {
		http.Error(w, "post rejected", statusCode)
		return
	}
	w.Write([]byte("ok"))
}

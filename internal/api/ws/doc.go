// Package ws streams kernel events to inspector clients over a websocket.
//
// Each connection taps the event bus and receives every event as a JSON
// frame {"type":"event","event":{name,data,time}}. A client may narrow the
// stream by sending {"type":"subscribe","names":["application:launched"]};
// an empty list restores the full stream. {"type":"ping"} answers with a
// pong. Slow clients drop events rather than stalling the bus.
package ws

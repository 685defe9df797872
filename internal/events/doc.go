// Package events distributes run events from hosts to interested
// subscribers, such as WebSocket clients watching a session
package events

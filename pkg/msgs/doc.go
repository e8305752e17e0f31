// Package msgs defines the events the board publishes to monitors.
//
// Producer: neurond
// Consumer: neuroncli, dashboards subscribed to the status topic
package msgs

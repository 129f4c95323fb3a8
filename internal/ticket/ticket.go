// Package ticket holds the historical support ticket records and the
// read-only catalog that pairs them with their vector index.
package ticket

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Ticket is one historical support record. Records are immutable after load.
// The record's position in the metadata file equals its vector's position in
// the index; the ingestion job guarantees this and the catalog verifies it.
type Ticket struct {
	TicketID          string `json:"ticketID"`
	SystemName        string `json:"systemName"`
	CustomerComplaint string `json:"customerComplaint"`
	FaultText         string `json:"faultText"`
	Solution1         string `json:"solution1,omitempty"`
	Solution2         string `json:"solution2,omitempty"`
	Solution3         string `json:"solution3,omitempty"`
	DateFinished1     string `json:"dateFinished1,omitempty"`
	TimeFinished1     string `json:"timeFinished1,omitempty"`
}

// Summary returns the text block the relevance reranker shows the LLM.
func (t Ticket) Summary() string {
	var sb strings.Builder
	sb.WriteString("System: ")
	sb.WriteString(t.SystemName)
	sb.WriteString("\nComplaint: ")
	sb.WriteString(t.CustomerComplaint)
	sb.WriteString("\nFault: ")
	sb.WriteString(t.FaultText)
	return sb.String()
}

// SearchText returns the text the keyword scorer matches the query against.
func (t Ticket) SearchText() string {
	return t.FaultText + " " + t.CustomerComplaint
}

// Solution returns the text of the named solution tier, or "" for an unknown key.
func (t Ticket) Solution(key string) string {
	switch key {
	case "solution1":
		return t.Solution1
	case "solution2":
		return t.Solution2
	case "solution3":
		return t.Solution3
	}
	return ""
}

// LoadTickets reads the ordered ticket metadata file written by the ingestion
// job. Order matters: it must match the vector index item order.
func LoadTickets(path string) ([]Ticket, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ticket metadata: %w", err)
	}

	var tickets []Ticket
	if err := json.Unmarshal(data, &tickets); err != nil {
		return nil, fmt.Errorf("parsing ticket metadata: %w", err)
	}
	return tickets, nil
}

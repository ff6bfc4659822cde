package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"safetyagent/internal/extractor"
	"safetyagent/internal/model"
)

const (
	textProposalTitle     = "Safety Agent Text"
	documentProposalTitle = "Safety Agent Import"
)

// UploadInput is a document submitted for extraction.
type UploadInput struct {
	Reader   io.Reader
	FileName string
	MimeType string
	Notes    string
}

// ProposeResult is what the agent submitted for review.
type ProposeResult struct {
	ProposalID        int64                `json:"proposal_id"`
	DocumentID        *int64               `json:"document_id,omitempty"`
	FileURL           string               `json:"file_url,omitempty"`
	Facts             []string             `json:"facts"`
	ProposedItems     []model.ProposedItem `json:"proposed_items"`
	UnapprovableItems []model.ProposedItem `json:"unapprovable_items"`
}

// AgentService turns free text or uploaded documents into pending proposals.
// It never writes to live collections; that only happens on approval.
type AgentService interface {
	ProposeFromText(ctx context.Context, actor model.Actor, text string) (*ProposeResult, error)
	ProposeFromDocument(ctx context.Context, actor model.Actor, in UploadInput) (*ProposeResult, error)
}

type agentService struct {
	extractor extractor.Extractor
	documents DocumentService
	proposals ProposalService
	gate      *WriteGate
	log       *zap.Logger
}

func NewAgentService(x extractor.Extractor, documents DocumentService, proposals ProposalService, gate *WriteGate, log *zap.Logger) AgentService {
	return &agentService{
		extractor: x,
		documents: documents,
		proposals: proposals,
		gate:      gate,
		log:       log,
	}
}

func (s *agentService) ProposeFromText(ctx context.Context, actor model.Actor, text string) (*ProposeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}

	res := s.extractor.Classify(text)
	p, err := s.proposals.Create(ctx, actor, CreateProposalInput{
		Title:       textProposalTitle,
		Description: fmt.Sprintf("Proposed %d change(s) from user text.", len(res.Proposals)),
		Items:       res.Proposals,
		Source:      "text",
	})
	if err != nil {
		return nil, err
	}
	return s.result(p.ID, res), nil
}

func (s *agentService) ProposeFromDocument(ctx context.Context, actor model.Actor, in UploadInput) (*ProposeResult, error) {
	if in.Reader == nil {
		return nil, fmt.Errorf("%w: file is required", ErrValidation)
	}

	doc, err := s.documents.Upload(ctx, actor, in.Reader, in.FileName, in.MimeType)
	if err != nil {
		return nil, err
	}

	var text string
	if doc.ExtractedText != nil {
		text = *doc.ExtractedText
	}
	res := s.extractor.Classify(text)

	desc := fmt.Sprintf("Proposed %d change(s) from uploaded document.", len(res.Proposals))
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		desc += " Notes: " + notes
	}

	p, err := s.proposals.Create(ctx, actor, CreateProposalInput{
		Title:       documentProposalTitle,
		Description: desc,
		DocumentID:  &doc.ID,
		Items:       res.Proposals,
		Source:      "document",
	})
	if err != nil {
		// The document stays stored; it is a valid record without a proposal.
		return nil, err
	}

	out := s.result(p.ID, res)
	out.DocumentID = &doc.ID
	if out.FileURL, err = s.documents.FileURL(ctx, doc); err != nil {
		s.log.Warn("presign_failed", zap.Int64("document_id", doc.ID), zap.Error(err))
	}
	return out, nil
}

func (s *agentService) result(proposalID int64, res extractor.Result) *ProposeResult {
	items := res.Proposals
	if items == nil {
		items = []model.ProposedItem{}
	}
	facts := res.Facts
	if facts == nil {
		facts = []string{}
	}
	return &ProposeResult{
		ProposalID:        proposalID,
		Facts:             facts,
		ProposedItems:     items,
		UnapprovableItems: s.gate.Unapprovable(items),
	}
}

package queue

import (
	"testing"
)

func TestBatchMessageValidate(t *testing.T) {
	t.Parallel()

	valid := BatchMessage{CampaignID: "camp-1", BatchIndex: 0}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := BatchMessage{BatchIndex: 1}
	if err := missing.Validate(); err == nil {
		t.Fatal("expected error for missing campaign id")
	}

	negative := BatchMessage{CampaignID: "camp-1", BatchIndex: -1}
	if err := negative.Validate(); err == nil {
		t.Fatal("expected error for negative batch index")
	}
}

func TestBatchMessageKey(t *testing.T) {
	t.Parallel()

	msg := BatchMessage{CampaignID: "camp-1", BatchIndex: 3}
	if got := msg.Key(); got != "camp-1:3" {
		t.Fatalf("Key() = %q, want camp-1:3", got)
	}
}

//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"telegram-affiliate-bot/internal/domain"
	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/usecase"
)

type linkDeps struct {
	recorder *MockRecorder
	uc       usecase.LinkUseCase
}

func newLinkDeps(t *testing.T, ms ...model.Merchant) linkDeps {
	t.Helper()
	rec := &MockRecorder{}
	merchants := usecase.NewMerchantUseCase(NewMockMerchantRepo(ms...), newTestLogger())
	return linkDeps{
		recorder: rec,
		uc:       usecase.NewLinkUseCase(merchants, newTestComposer(t), rec, newTestLogger()),
	}
}

func TestLinkUseCase_Generate(t *testing.T) {
	ctx := context.Background()
	viewer := model.User{TelegramID: 777, FirstName: "Vera"}

	t.Run("viral generation records both link and interaction", func(t *testing.T) {
		d := newLinkDeps(t, sampleMerchants()...)
		res, err := d.uc.Generate(ctx, usecase.GenerateRequest{
			User:           viewer,
			MerchantSlug:   "klook",
			Source:         model.LinkSourceCallback,
			OriginalUserID: 555,
		})
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if !strings.Contains(res.Composition.TrackedURL, "ref=tg_777") {
			t.Errorf("link should belong to the viewer: %s", res.Composition.TrackedURL)
		}
		if !strings.Contains(res.Message, "Vera") || !res.Viral {
			t.Errorf("unexpected result %+v", res)
		}
		if len(d.recorder.Links) != 1 || d.recorder.Links[0].Source != model.LinkSourceCallback {
			t.Fatalf("expected one callback link record, got %+v", d.recorder.Links)
		}
		if d.recorder.Links[0].TrackingID != res.Composition.TrackingID {
			t.Error("recorded tracking id does not match composition")
		}
		want := model.ViralInteraction{OriginalUserID: 555, ViralUserID: 777, MerchantSlug: "klook"}
		if len(d.recorder.Virals) != 1 || d.recorder.Virals[0] != want {
			t.Errorf("expected viral record %+v, got %+v", want, d.recorder.Virals)
		}
	})

	t.Run("own button is not viral", func(t *testing.T) {
		d := newLinkDeps(t, sampleMerchants()...)
		res, err := d.uc.Generate(ctx, usecase.GenerateRequest{User: viewer, MerchantSlug: "klook", Source: model.LinkSourceCallback, OriginalUserID: 777})
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if res.Viral || len(d.recorder.Virals) != 0 {
			t.Errorf("self generation recorded as viral: %+v", d.recorder.Virals)
		}
	})

	t.Run("unknown merchant", func(t *testing.T) {
		d := newLinkDeps(t, sampleMerchants()...)
		_, err := d.uc.Generate(ctx, usecase.GenerateRequest{User: viewer, MerchantSlug: "nope", Source: model.LinkSourceCallback, OriginalUserID: 555})
		if !errors.Is(err, domain.ErrMerchantNotFound) {
			t.Fatalf("expected ErrMerchantNotFound, got %v", err)
		}
		if len(d.recorder.Links)+len(d.recorder.Virals) != 0 {
			t.Error("nothing should be recorded for an unknown merchant")
		}
	})

	t.Run("anonymous user rejected", func(t *testing.T) {
		d := newLinkDeps(t, sampleMerchants()...)
		if _, err := d.uc.Generate(ctx, usecase.GenerateRequest{MerchantSlug: "klook"}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestLinkUseCase_Compose(t *testing.T) {
	d := newLinkDeps(t)
	m := merchant("bad|slug", "Bad", "https://bad.example/{{USER_ID}}", 1)
	if _, err := d.uc.Compose(context.Background(), model.User{TelegramID: 1}, m, model.LinkSourceInline); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(d.recorder.Links) != 0 {
		t.Error("failed composition must not be recorded")
	}
}

func TestLinkUseCase_Preview(t *testing.T) {
	d := newLinkDeps(t)
	m := merchant("klook", "Klook", "https://klook.example/?ref={{USER_ID}}", 6.5)
	user := model.User{TelegramID: 42, FirstName: "Ana"}

	res, err := d.uc.Preview(context.Background(), user, m)
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if !strings.Contains(res.Composition.TrackedURL, "ref=42") || res.Buttons.IsEmpty() {
		t.Errorf("unexpected preview %+v", res)
	}
	if len(d.recorder.Links) != 0 {
		t.Errorf("preview must not record a link generation, got %+v", d.recorder.Links)
	}

	if _, err := d.uc.Compose(context.Background(), user, m, model.LinkSourceCommand); err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	if len(d.recorder.Links) != 1 {
		t.Errorf("compose should record once, got %d", len(d.recorder.Links))
	}
}

package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/leadbilling/internal/invoice/domain"
	leaddomain "github.com/smallbiznis/leadbilling/internal/lead/domain"
	"github.com/smallbiznis/leadbilling/internal/reconciliation/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(value string) *time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return &t
}

func price(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func march2024(t *testing.T) domain.DateRange {
	t.Helper()
	rng, err := RangeFor(domain.Period{Month: 3, Year: 2024}, time.UTC)
	require.NoError(t, err)
	return rng
}

func leadIDs(items []domain.AssignmentItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.LeadID)
	}
	return ids
}

func TestRangeForCoversWholeMonth(t *testing.T) {
	rng := march2024(t)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), rng.Start)
	assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 999_000_000, time.UTC), rng.End)

	feb, err := RangeFor(domain.Period{Month: 2, Year: 2024}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 29, feb.End.Day())

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	local, err := RangeFor(domain.Period{Month: 3, Year: 2024}, berlin)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC), local.Start.UTC())

	for _, period := range []domain.Period{{Month: 0, Year: 2024}, {Month: 13, Year: 2024}, {Month: 1, Year: 0}} {
		_, err := RangeFor(period, time.UTC)
		assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
	}
}

func TestFlattenKeepsBillableInPeriodAssignments(t *testing.T) {
	leads := []leaddomain.Lead{
		{
			ID:          "l1",
			ServiceType: leaddomain.ServiceMoving,
			PartnerAssignments: []leaddomain.PartnerAssignment{
				{PartnerID: "p1", Status: leaddomain.AssignmentAccepted, AcceptedAt: at("2024-03-05T10:00:00Z")},
				{PartnerID: "p2", Status: leaddomain.AssignmentAccepted, AcceptedAt: at("2024-03-05T10:00:00Z")},
			},
		},
		{
			ID: "l2",
			PartnerAssignments: []leaddomain.PartnerAssignment{
				{PartnerID: "p1", Status: leaddomain.AssignmentPending, AssignedAt: at("2024-03-05T10:00:00Z")},
				{PartnerID: "p1", Status: leaddomain.AssignmentRejected, AssignedAt: at("2024-03-05T10:00:00Z")},
			},
		},
		{
			ID: "l3",
			PartnerAssignments: []leaddomain.PartnerAssignment{
				{PartnerID: "p1", Status: leaddomain.AssignmentCancellationRequested, AssignedAt: at("2024-03-31T23:59:59Z")},
			},
		},
		{
			ID: "l4",
			PartnerAssignments: []leaddomain.PartnerAssignment{
				{PartnerID: "p1", Status: leaddomain.AssignmentAccepted, AcceptedAt: at("2024-04-01T00:00:00Z"), AssignedAt: at("2024-03-20T00:00:00Z")},
			},
		},
	}

	items := Flatten(leads, "p1", march2024(t), FlattenOptions{})
	assert.Equal(t, []string{"l1", "l3"}, leadIDs(items))
	assert.Equal(t, leaddomain.ServiceMoving, items[0].ServiceType)
	assert.Equal(t, leaddomain.AssignmentCancellationRequested, items[1].AssignmentStatus)
}

func TestFlattenReassignedLeadBillsOnlyAcceptedAssignment(t *testing.T) {
	leads := []leaddomain.Lead{{
		ID: "l1",
		PartnerAssignments: []leaddomain.PartnerAssignment{
			{PartnerID: "p1", Status: leaddomain.AssignmentCancelled, AssignedAt: at("2024-03-02T09:00:00Z")},
			{PartnerID: "p1", Status: leaddomain.AssignmentAccepted, AssignedAt: at("2024-03-10T09:00:00Z"), AcceptedAt: at("2024-03-10T12:00:00Z")},
		},
	}}

	items := Flatten(leads, "p1", march2024(t), FlattenOptions{})
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].AssignmentIndex)
	assert.Equal(t, leaddomain.AssignmentAccepted, items[0].AssignmentStatus)
}

func TestFlattenDoesNotDeduplicateRepeatedAssignments(t *testing.T) {
	leads := []leaddomain.Lead{{
		ID: "l1",
		PartnerAssignments: []leaddomain.PartnerAssignment{
			{PartnerID: "p1", Status: leaddomain.AssignmentAccepted, AcceptedAt: at("2024-03-02T09:00:00Z")},
			{PartnerID: "p1", Status: leaddomain.AssignmentAccepted, AcceptedAt: at("2024-03-20T09:00:00Z")},
		},
	}}

	items := Flatten(leads, "p1", march2024(t), FlattenOptions{})
	assert.Equal(t, []string{"l1", "l1"}, leadIDs(items))
}

func TestFlattenMissingTimestamps(t *testing.T) {
	leads := []leaddomain.Lead{{
		ID: "l1",
		PartnerAssignments: []leaddomain.PartnerAssignment{
			{PartnerID: "p1", Status: leaddomain.AssignmentAccepted},
		},
	}}

	assert.Len(t, Flatten(leads, "p1", march2024(t), FlattenOptions{}), 1)
	assert.Empty(t, Flatten(leads, "p1", march2024(t), FlattenOptions{StrictTimestamps: true}))
}

func TestBuildMembershipIndexFirstInvoiceWins(t *testing.T) {
	index := BuildMembershipIndex([]invoicedomain.Invoice{
		{ID: "inv-1", InvoiceNumber: "INV-1", Status: invoicedomain.StatusPending, Items: []invoicedomain.LineItem{{LeadID: "l1"}, {LeadID: ""}}},
		{ID: "inv-2", InvoiceNumber: "INV-2", Status: invoicedomain.StatusPaid, Items: []invoicedomain.LineItem{{LeadID: "l1"}, {LeadID: "l2"}}},
	})

	require.Len(t, index, 2)
	assert.Equal(t, "inv-1", index["l1"].InvoiceID)
	assert.Equal(t, invoicedomain.StatusPending, index["l1"].Status)
	assert.Equal(t, "INV-2", index["l2"].InvoiceNumber)
}

func classificationFixture() ([]domain.AssignmentItem, domain.MembershipIndex) {
	items := []domain.AssignmentItem{
		{LeadID: "unpaid", AssignmentStatus: leaddomain.AssignmentAccepted},
		{LeadID: "billed", AssignmentStatus: leaddomain.AssignmentAccepted},
		{LeadID: "paid", AssignmentStatus: leaddomain.AssignmentAccepted},
		{LeadID: "paid-cancel", AssignmentStatus: leaddomain.AssignmentCancellationRequested},
		{LeadID: "billed-cancel", AssignmentStatus: leaddomain.AssignmentCancellationRequested},
		{LeadID: "cancel", AssignmentStatus: leaddomain.AssignmentCancellationRequested},
		{LeadID: "voided", AssignmentStatus: leaddomain.AssignmentAccepted},
	}
	index := domain.MembershipIndex{
		"billed":        {InvoiceID: "inv-1", Status: invoicedomain.StatusPending},
		"paid":          {InvoiceID: "inv-2", Status: invoicedomain.StatusPaid},
		"paid-cancel":   {InvoiceID: "inv-2", Status: invoicedomain.StatusPaid},
		"billed-cancel": {InvoiceID: "inv-1", Status: invoicedomain.StatusPending},
		"voided":        {InvoiceID: "inv-3", Status: invoicedomain.StatusCancelled},
	}
	return items, index
}

func TestClassifyPartitionsItems(t *testing.T) {
	items, index := classificationFixture()
	buckets := Classify(items, index)

	assert.Equal(t, []string{"unpaid"}, leadIDs(buckets.Unpaid))
	assert.Equal(t, []string{"billed", "voided"}, leadIDs(buckets.Invoiced))
	assert.Equal(t, []string{"paid", "paid-cancel"}, leadIDs(buckets.Paid))
	assert.Equal(t, []string{"billed-cancel", "cancel"}, leadIDs(buckets.Excluded))

	total := len(buckets.Unpaid) + len(buckets.Invoiced) + len(buckets.Paid) + len(buckets.Excluded)
	assert.Equal(t, len(items), total)

	assert.Equal(t, "inv-2", buckets.Paid[0].InvoiceID)
	assert.Empty(t, buckets.Unpaid[0].InvoiceID)
	assert.Empty(t, items[1].InvoiceID, "input must stay untouched")
}

func TestClassifyIsDeterministic(t *testing.T) {
	items, index := classificationFixture()
	assert.Equal(t, Classify(items, index), Classify(items, index))
}

func TestClassifyEmptyInputYieldsEmptyBuckets(t *testing.T) {
	buckets := Classify(nil, nil)
	assert.NotNil(t, buckets.Unpaid)
	assert.Empty(t, buckets.Unpaid)
	assert.Empty(t, buckets.Paid)
}

func TestApplyDateFilterRange(t *testing.T) {
	items := []domain.AssignmentItem{
		{LeadID: "a", AcceptedAt: at("2024-03-01T00:00:00Z")},
		{LeadID: "b", AcceptedAt: at("2024-03-15T00:00:00Z")},
		{LeadID: "c", AcceptedAt: at("2024-04-01T00:00:00Z")},
	}

	kept, err := ApplyDateFilter(items, domain.DateFilter{
		Type: domain.FilterRange,
		From: at("2024-03-01T00:00:00Z"),
		To:   at("2024-03-31T00:00:00Z"),
	}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, leadIDs(kept))
}

func TestApplyDateFilterModes(t *testing.T) {
	items := []domain.AssignmentItem{
		{LeadID: "sat-before", AcceptedAt: at("2024-03-09T23:00:00Z")},
		{LeadID: "sun", AcceptedAt: at("2024-03-10T08:00:00Z")},
		{LeadID: "wed", AcceptedAt: at("2024-03-13T12:00:00Z")},
		{LeadID: "sat", AcceptedAt: at("2024-03-16T23:59:59Z")},
		{LeadID: "created-only", LeadCreatedAt: at("2024-03-13T09:00:00Z")},
		{LeadID: "undated"},
		{LeadID: "next-year", AcceptedAt: at("2025-01-01T00:00:00Z")},
	}

	cases := []struct {
		name   string
		filter domain.DateFilter
		want   []string
	}{
		{
			name:   "all keeps everything",
			filter: domain.DateFilter{Type: domain.FilterAll},
			want:   []string{"sat-before", "sun", "wed", "sat", "created-only", "undated", "next-year"},
		},
		{
			name:   "day",
			filter: domain.DateFilter{Type: domain.FilterDay, Date: at("2024-03-13T18:00:00Z")},
			want:   []string{"wed", "created-only"},
		},
		{
			name:   "week runs sunday to saturday",
			filter: domain.DateFilter{Type: domain.FilterWeek, Date: at("2024-03-13T00:00:00Z")},
			want:   []string{"sun", "wed", "sat", "created-only"},
		},
		{
			name:   "month from parameters",
			filter: domain.DateFilter{Type: domain.FilterMonth, Month: 3, Year: 2024},
			want:   []string{"sat-before", "sun", "wed", "sat", "created-only"},
		},
		{
			name:   "year from reference date",
			filter: domain.DateFilter{Type: domain.FilterYear, Date: at("2025-06-01T00:00:00Z")},
			want:   []string{"next-year"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kept, err := ApplyDateFilter(items, tc.filter, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tc.want, leadIDs(kept))
		})
	}
}

func TestFilterWindowRejectsBadParameters(t *testing.T) {
	cases := []domain.DateFilter{
		{Type: domain.FilterDay},
		{Type: domain.FilterWeek},
		{Type: domain.FilterRange, From: at("2024-03-01T00:00:00Z")},
		{Type: domain.FilterRange, From: at("2024-03-31T00:00:00Z"), To: at("2024-03-01T00:00:00Z")},
		{Type: domain.FilterMonth, Month: 13, Year: 2024},
		{Type: domain.FilterMonth},
		{Type: domain.FilterYear},
		{Type: "fortnight"},
	}
	for _, filter := range cases {
		_, _, err := FilterWindow(filter, time.UTC)
		assert.ErrorIs(t, err, domain.ErrInvalidFilter, "filter %+v", filter)
	}
}

func TestFilterBucketsLeavesPaidAlone(t *testing.T) {
	buckets := domain.Buckets{
		Unpaid:   []domain.AssignmentItem{{LeadID: "u1", AcceptedAt: at("2024-03-02T00:00:00Z")}, {LeadID: "u2", AcceptedAt: at("2024-03-20T00:00:00Z")}},
		Invoiced: []domain.AssignmentItem{{LeadID: "i1", AcceptedAt: at("2024-03-20T00:00:00Z")}},
		Paid:     []domain.AssignmentItem{{LeadID: "p1", AcceptedAt: at("2024-03-20T00:00:00Z")}},
	}

	filtered, err := FilterBuckets(buckets, domain.DateFilter{Type: domain.FilterDay, Date: at("2024-03-02T00:00:00Z")}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, leadIDs(filtered.Unpaid))
	assert.Empty(t, filtered.Invoiced)
	assert.Equal(t, []string{"p1"}, leadIDs(filtered.Paid))
}

func defaultRules() domain.Rules {
	return domain.Rules{
		TaxRate:           decimal.RequireFromString("0.19"),
		FallbackLeadPrice: decimal.NewFromInt(30),
	}
}

func TestBuildDraftComputesTotals(t *testing.T) {
	rng := march2024(t)
	selected := []domain.AssignmentItem{
		{LeadID: "l1", LeadPrice: price("25.00")},
		{LeadID: "l2"},
	}

	draft, err := BuildDraft("p1", "moving", rng, selected, defaultRules())
	require.NoError(t, err)

	assert.Equal(t, "55", draft.Subtotal.String())
	assert.Equal(t, "10.45", draft.Tax.StringFixed(2))
	assert.Equal(t, "65.45", draft.Total.StringFixed(2))
	require.Len(t, draft.Items, 2)
	assert.Equal(t, "moving Lead - l1", draft.Items[0].Description)
	assert.True(t, draft.Items[1].Amount.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, rng.Start, draft.BillingPeriod.StartDate)
	assert.Equal(t, rng.End, draft.BillingPeriod.EndDate)
	assert.Equal(t, []string{"l1", "l2"}, draft.LeadIDs())
}

func TestBuildDraftTaxIsRoundedToCents(t *testing.T) {
	selected := []domain.AssignmentItem{
		{LeadID: "l1", LeadPrice: price("10.33")},
		{LeadID: "l2", LeadPrice: price("7.01")},
	}

	draft, err := BuildDraft("p1", "cleaning", march2024(t), selected, defaultRules())
	require.NoError(t, err)

	assert.Equal(t, "17.34", draft.Subtotal.StringFixed(2))
	assert.Equal(t, "3.29", draft.Tax.String())
	assert.True(t, draft.Total.Equal(draft.Subtotal.Add(draft.Tax)))
}

func TestBuildDraftRejectsEmptySelection(t *testing.T) {
	_, err := BuildDraft("p1", "moving", march2024(t), nil, defaultRules())
	assert.ErrorIs(t, err, domain.ErrEmptySelection)

	_, err = BuildDraft(" ", "moving", march2024(t), []domain.AssignmentItem{{LeadID: "l1"}}, defaultRules())
	assert.ErrorIs(t, err, domain.ErrInvalidPartner)
}

func TestTotalsUsesFallbackPrice(t *testing.T) {
	totals := Totals(domain.Buckets{
		Unpaid: []domain.AssignmentItem{{LeadID: "a"}, {LeadID: "b", LeadPrice: price("12.5")}},
		Paid:   []domain.AssignmentItem{{LeadID: "c"}},
	}, decimal.NewFromInt(30))

	assert.Equal(t, 2, totals.Unpaid.Count)
	assert.Equal(t, "42.5", totals.Unpaid.Amount.String())
	assert.Equal(t, 1, totals.Paid.Count)
	assert.Equal(t, 0, totals.Invoiced.Count)
	assert.True(t, totals.Invoiced.Amount.IsZero())
}

package sqlinline

// Every statement that moves credit pairs the balance mutation with its
// credit_transactions insert in one atomic statement via CTEs, so a partial
// write (balance without audit row, or the reverse) cannot be observed.

const QGrantBalance = `--sql a5cdf0b7-3ab5-4023-9f94-07525e1458c0
with upserted as (
    insert into credit_balances (id, subject_kind, subject_id, included, used, overage, purchased_credits, period_start, period_end, created_at, updated_at)
    values (gen_random_uuid(), $1::text, $2::uuid, $3::bigint, 0, 0, 0, $4::timestamptz, $5::timestamptz, now(), now())
    on conflict (subject_kind, subject_id) do update set
        included = excluded.included,
        period_start = excluded.period_start,
        period_end = excluded.period_end,
        updated_at = now()
    returning id, subject_kind, subject_id, included, used, overage, purchased_credits, period_start, period_end, created_at, updated_at
),
logged as (
    insert into credit_transactions (id, balance_id, amount, type, description, created_at)
    select gen_random_uuid(), id, $3::bigint, 'GRANT', $6::text, now()
    from upserted
)
select id, subject_kind, subject_id, included, used, overage, purchased_credits, period_start, period_end, created_at, updated_at
from upserted;
`

const QResetBalance = `--sql c8fe934d-4452-4d2b-a0ea-a3fc426d543e
with reset as (
    update credit_balances
    set used = 0,
        overage = 0,
        period_start = $3::timestamptz,
        period_end = $4::timestamptz,
        updated_at = now()
    where subject_kind = $1::text
      and subject_id = $2::uuid
    returning id, subject_kind, subject_id, included, used, overage, purchased_credits, period_start, period_end, created_at, updated_at
),
logged as (
    insert into credit_transactions (id, balance_id, amount, type, description, created_at)
    select gen_random_uuid(), id, 0, 'ADJUSTMENT', $5::text, now()
    from reset
)
select id, subject_kind, subject_id, included, used, overage, purchased_credits, period_start, period_end, created_at, updated_at
from reset;
`

const QAdjustBalance = `--sql 7aa95766-dc3f-43d6-8a82-d480c277e50d
with current as (
    select id, included
    from credit_balances
    where subject_kind = $1::text
      and subject_id = $2::uuid
    for update
),
adjusted as (
    update credit_balances b
    set included = $3::bigint,
        updated_at = now()
    from current c
    where b.id = c.id
    returning b.id, b.subject_kind, b.subject_id, b.included, b.used, b.overage, b.purchased_credits, b.period_start, b.period_end, b.created_at, b.updated_at,
              $3::bigint - c.included as delta
),
logged as (
    insert into credit_transactions (id, balance_id, amount, type, description, created_at)
    select gen_random_uuid(), id, delta, 'ADJUSTMENT', $4::text, now()
    from adjusted
)
select id, subject_kind, subject_id, included, used, overage, purchased_credits, period_start, period_end, created_at, updated_at, delta
from adjusted;
`

const QRecordPurchase = `--sql 2e92ad78-3d2c-423e-97f4-37ffa56fc588
with purchased as (
    update credit_balances
    set purchased_credits = purchased_credits + $3::bigint,
        updated_at = now()
    where subject_kind = $1::text
      and subject_id = $2::uuid
    returning id
),
logged as (
    insert into credit_transactions (id, balance_id, amount, type, description, created_at)
    select gen_random_uuid(), id, $3::bigint, 'PURCHASE', $4::text, now()
    from purchased
)
select id from purchased;
`

const QRecordUsage = `--sql 81a189d3-16ae-4980-878c-a32cee563def
with current as (
    select id, greatest(included + purchased_credits - used, 0) as remaining
    from credit_balances
    where subject_kind = $1::text
      and subject_id = $2::uuid
    for update
),
debited as (
    update credit_balances b
    set used = b.used + least($3::bigint, c.remaining),
        overage = b.overage + greatest($3::bigint - c.remaining, 0),
        updated_at = now()
    from current c
    where b.id = c.id
    returning b.id, least($3::bigint, c.remaining) as covered, greatest($3::bigint - c.remaining, 0) as spill
),
usage_tx as (
    insert into credit_transactions (id, balance_id, amount, type, tool_slug, job_id, description, created_at)
    select gen_random_uuid(), id, -covered, 'USAGE', $4::text, $5::uuid, $6::text, now()
    from debited
    where covered > 0 or spill = 0
),
overage_tx as (
    insert into credit_transactions (id, balance_id, amount, type, tool_slug, job_id, description, created_at)
    select gen_random_uuid(), id, -spill, 'OVERAGE', $4::text, $5::uuid, $6::text, now()
    from debited
    where spill > 0
)
select covered, spill from debited;
`

const QSelectBalance = `--sql 4891e5f9-a34a-4fe5-b5c9-07b986461e85
select id, subject_kind, subject_id, included, used, overage, purchased_credits, period_start, period_end, created_at, updated_at
from credit_balances
where subject_kind = $1::text
  and subject_id = $2::uuid;
`

const QListPurchases = `--sql c6ea8c5b-2c2c-495e-90c4-6a2ab204bed7
select t.id, t.balance_id, t.amount, t.type, coalesce(t.tool_slug, ''), t.job_id, coalesce(t.description, ''), t.created_at
from credit_transactions t
join credit_balances b on b.id = t.balance_id
where b.subject_kind = $1::text
  and b.subject_id = $2::uuid
  and t.type = 'PURCHASE'
order by t.created_at desc;
`

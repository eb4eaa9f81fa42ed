package sqlinline

const QInsertJob = `--sql b870fb7f-5fa8-4860-8c75-6268965fb1f4
insert into jobs (id, tool_slug, owner_kind, owner_id, status, priority, input, attempts, max_attempts, expires_at, created_at, updated_at)
values ($1::uuid, $2::text, $3::text, $4::uuid, 'PENDING', $5::int, $6::jsonb, 0, $7::int, $8::timestamptz, now(), now())
returning id, created_at, updated_at, expires_at;
`

const QSelectJobByID = `--sql 289bc24b-5100-4a3c-8363-9ecbc246b654
select id, tool_slug, owner_kind, owner_id, status, priority, input, output,
       coalesce(error_message, ''), attempts, max_attempts, process_after,
       started_at, completed_at, expires_at, created_at, updated_at
from jobs
where id = $1::uuid;
`

const QClaimNextJob = `--sql d9e84d35-29a5-4a42-9daf-d3179ba99d3c
with next_job as (
    select id
    from jobs
    where status = 'PENDING'
      and ($1::text is null or tool_slug = $1::text)
      and (process_after is null or process_after <= now())
    order by priority desc, created_at asc
    for update skip locked
    limit 1
),
claimed as (
    update jobs
    set status = 'PROCESSING',
        started_at = now(),
        attempts = attempts + 1,
        updated_at = now()
    where id in (select id from next_job)
    returning id, tool_slug, owner_kind, owner_id, priority, input, attempts, max_attempts, started_at, expires_at, created_at
)
select * from claimed;
`

const QCompleteJob = `--sql 7b202617-59f4-41b1-b028-6eda70ee977a
update jobs
set status = 'COMPLETED',
    output = $2::jsonb,
    completed_at = now(),
    updated_at = now()
where id = $1::uuid
  and status = 'PROCESSING';
`

const QFailJob = `--sql f8b88d13-870f-4a53-a74a-3b17826e0ccc
update jobs
set status = 'FAILED',
    error_message = $2::text,
    completed_at = now(),
    updated_at = now()
where id = $1::uuid
  and status = 'PROCESSING';
`

const QRequeueJob = `--sql 9233de86-778a-48c4-8a85-e8ef98d459f3
update jobs
set status = 'PENDING',
    process_after = $2::timestamptz,
    started_at = null,
    completed_at = null,
    error_message = null,
    updated_at = now()
where id = $1::uuid
  and status = 'FAILED'
  and attempts < max_attempts;
`

const QCancelJob = `--sql ec18633e-fd35-4543-aa18-ac6d361192f7
update jobs
set status = 'CANCELLED',
    completed_at = now(),
    updated_at = now()
where id = $1::uuid
  and status in ('PENDING', 'PROCESSING');
`

const QJobStats = `--sql 5a9a2912-f4ab-4623-be6a-0ed62177a1b1
select
    count(*) filter (where status = 'PENDING'),
    count(*) filter (where status = 'PROCESSING'),
    count(*) filter (where status = 'COMPLETED'),
    count(*) filter (where status = 'FAILED'),
    count(*) filter (where status = 'CANCELLED')
from jobs
where $1::text is null or tool_slug = $1::text;
`

const QFindCachedJob = `--sql d88a7141-a09f-4a93-9e8f-7a3597e4d147
select id, tool_slug, owner_kind, owner_id, status, priority, input, output,
       coalesce(error_message, ''), attempts, max_attempts, process_after,
       started_at, completed_at, expires_at, created_at, updated_at
from jobs
where status = 'COMPLETED'
  and tool_slug = $1::text
  and input = $2::jsonb
  and completed_at >= now() - make_interval(secs => $3::double precision)
order by completed_at desc
limit 1;
`

const QFindStuckJobs = `--sql ca567194-6c18-4b92-95a2-07e5246e7554
select id, tool_slug, owner_kind, owner_id, status, priority, input, output,
       coalesce(error_message, ''), attempts, max_attempts, process_after,
       started_at, completed_at, expires_at, created_at, updated_at
from jobs
where status = 'PROCESSING'
  and started_at < now() - make_interval(secs => $1::double precision)
order by started_at asc;
`

const QReapStuckJobs = `--sql 4164000e-d365-4b11-8849-f80ce19c12da
update jobs
set status = 'FAILED',
    error_message = $2::text,
    completed_at = now(),
    updated_at = now()
where status = 'PROCESSING'
  and started_at < now() - make_interval(secs => $1::double precision);
`

const QDeleteExpiredJobs = `--sql abd9fa11-ed41-4047-9b7c-4130da17d955
delete from jobs
where status in ('COMPLETED', 'FAILED', 'CANCELLED')
  and expires_at < now();
`

package store

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- WORK ITEM TABLE
    -- ==========================================================================
    -- Record id is the compound [source_id, source_record_id], which gives the
    -- per-source uniqueness guarantee at the storage layer.
    DEFINE TABLE IF NOT EXISTS work_item SCHEMALESS;
    DEFINE FIELD IF NOT EXISTS source_id ON work_item TYPE string;
    DEFINE FIELD IF NOT EXISTS source_record_id ON work_item TYPE int;
    DEFINE FIELD IF NOT EXISTS status ON work_item TYPE string DEFAULT "pending";
    DEFINE FIELD IF NOT EXISTS retry_count ON work_item TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS discovered_at ON work_item TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS work_item_identity ON work_item FIELDS source_id, source_record_id UNIQUE;
    DEFINE INDEX IF NOT EXISTS work_item_status ON work_item FIELDS source_id, status;
    DEFINE INDEX IF NOT EXISTS work_item_accession ON work_item FIELDS accession_number;

    -- ==========================================================================
    -- WATERMARK TABLE
    -- ==========================================================================
    -- One row per source; record id is the source id.
    DEFINE TABLE IF NOT EXISTS watermark SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS source_id ON watermark TYPE string;
    DEFINE FIELD IF NOT EXISTS last_seen_id ON watermark TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS last_polled_at ON watermark TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS watermark_source ON watermark FIELDS source_id UNIQUE;

    -- ==========================================================================
    -- DOCTOR PROFILE TABLE (written by the external learner, read-only here)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS doctor_profile SCHEMALESS;
    DEFINE FIELD IF NOT EXISTS doctor_id ON doctor_profile TYPE string;
`

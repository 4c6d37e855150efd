package retrieval

// Every statement is parameterized; query text never contains user input.
// Vector index names are passed as parameters too.

const eventsQuery = `
CALL db.index.vector.queryNodes($index, $candidates, $embedding) YIELD node, score
WHERE score >= $threshold
  AND node.start_date IS NOT NULL
  AND node.start_date <= date()
  AND CASE $date_range
        WHEN 'recent'   THEN node.start_date >= date() - duration('P3M')
        WHEN 'latest'   THEN node.start_date >= date() - duration('P3D')
        WHEN 'historic' THEN node.start_date <  date() - duration('P50Y')
        ELSE true
      END
RETURN node.name AS name,
       node.description AS description,
       node.start_date AS start_date,
       node.emotion AS emotion,
       node.emotion_intensity AS emotion_intensity,
       score AS similarity
ORDER BY similarity DESC`

const claimsQuery = `
CALL db.index.vector.queryNodes($index, $candidates, $embedding) YIELD node, score
WHERE score >= $threshold
RETURN node.content AS content,
       node.source AS source,
       node.confidence AS confidence,
       score AS similarity
ORDER BY similarity DESC
LIMIT $limit`

const conceptRelationshipsQuery = `
CALL db.index.vector.queryNodes($index, $candidates, $embedding) YIELD node AS concept, score
WHERE score >= $threshold
MATCH (concept)-[r]-(other:Concept)
RETURN concept.name AS source,
       concept.description AS source_description,
       type(r) AS relation_type,
       other.name AS target,
       other.description AS target_description,
       score AS similarity
ORDER BY similarity DESC, source, relation_type, target
LIMIT $limit`

const conceptsByNameQuery = `
UNWIND $names AS concept_name
MATCH (concept:Concept {name: concept_name})-[r]-(other:Concept)
RETURN concept.name AS source,
       concept.description AS source_description,
       type(r) AS relation_type,
       other.name AS target,
       other.description AS target_description
ORDER BY source, target, relation_type
LIMIT $limit`

const referencesQuery = `
UNWIND $indexes AS idx
CALL db.index.vector.queryNodes(idx.name, $candidates, $embedding) YIELD node, score
WHERE score >= $threshold
  AND NOT toLower(coalesce(node.status, '')) IN $excluded_statuses
RETURN idx.label AS label,
       coalesce(node.text, node.content, node.description, '') AS content,
       toString(coalesce(node.name, node.number, '')) AS name,
       node.status AS status,
       score AS similarity
ORDER BY similarity DESC`

const chunksQuery = `
CALL db.index.vector.queryNodes($index, $candidates, $embedding) YIELD node, score
WHERE score >= $threshold
RETURN node.text AS content,
       node.source AS source,
       score AS similarity
ORDER BY similarity DESC
LIMIT $limit`
